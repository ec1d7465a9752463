package intent

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"medquote/internal/ai"
	"medquote/internal/logging"
	"medquote/internal/metrics"
	"medquote/internal/modules/plan"
	"medquote/internal/types"
)

const toolName = "classify_request"

const systemPrompt = `You triage messages sent to a medical transport quotation desk.
Classify the latest user message and extract any quote parameters it or the
conversation mentions:
- GENERAL: questions about the service, small talk, anything that is not a price.
- EXPLAIN_COST: the user wants to know which cost items make up a quote.
- CALCULATE_COST: the user wants a price for a transfer or event.
Categories: AIR_TRANSPORT moves a living patient, DECEASED_TRANSPORT
repatriates remains, EVENT_SUPPORT staffs a venue with medical personnel.
Origins and destinations are hospitals, cities or addresses as written by the
user. Scenarios are the transport modes the user wants compared.
Answer only by calling classify_request.`

var Schema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"intent": {
			Type: jsonschema.String,
			Enum: []string{string(IntentGeneral), string(IntentExplainCost), string(IntentCalculateCost)},
		},
		"category": {
			Type: jsonschema.String,
			Enum: []string{string(plan.CategoryAir), string(plan.CategoryDeceased), string(plan.CategoryEvent)},
		},
		"origin":           {Type: jsonschema.String, Description: "Where the patient or remains are picked up"},
		"destination":      {Type: jsonschema.String, Description: "Where the patient or remains are delivered"},
		"departureAirport": {Type: jsonschema.String, Description: "IATA code, only if the user named one"},
		"arrivalAirport":   {Type: jsonschema.String, Description: "IATA code, only if the user named one"},
		"scenarios": {
			Type:        jsonschema.Array,
			Description: "Transport modes to compare, e.g. civil, airAmbulance, charter, ship",
			Items:       &jsonschema.Definition{Type: jsonschema.String},
		},
		"cremated": {Type: jsonschema.Boolean, Description: "Deceased transport only: remains are cremated"},
		"days":     {Type: jsonschema.Integer, Description: "Engagement length in days"},
		"patient": {
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"diagnosis":     {Type: jsonschema.String},
				"consciousness": {Type: jsonschema.String},
				"mobility":      {Type: jsonschema.String},
			},
		},
	},
	Required: []string{"intent"},
}

type extracted struct {
	Intent           Intent        `json:"intent"`
	Category         plan.Category `json:"category"`
	Origin           string        `json:"origin"`
	Destination      string        `json:"destination"`
	DepartureAirport string        `json:"departureAirport"`
	ArrivalAirport   string        `json:"arrivalAirport"`
	Scenarios        []string      `json:"scenarios"`
	Cremated         *bool         `json:"cremated"`
	Days             int           `json:"days"`
	Patient          struct {
		Diagnosis     string `json:"diagnosis"`
		Consciousness string `json:"consciousness"`
		Mobility      string `json:"mobility"`
	} `json:"patient"`
}

type Service struct {
	llm     ai.LLMProvider
	logger  *zap.Logger
	metrics *metrics.Collector
}

func NewService(llm ai.LLMProvider, logger *zap.Logger, m *metrics.Collector) *Service {
	return &Service{llm: llm, logger: logging.OrNop(logger), metrics: m}
}

// Classify extracts the intent and quote parameters of message. Any failure is
// returned as *ExtractionError; callers treat it as a general question.
func (s *Service) Classify(ctx context.Context, message string, history []ai.Message) (Extraction, error) {
	if s.llm == nil {
		return General(), &ExtractionError{Err: errors.New("no AI provider configured")}
	}
	msgs := make([]ai.Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	msgs = append(msgs, ai.Message{Role: ai.RoleUser, Content: message})

	resp, err := s.llm.Complete(ctx, ai.Request{
		System:   systemPrompt,
		Messages: msgs,
		Tool: &ai.Tool{
			Name:        toolName,
			Description: "Record the classification of the user's latest message",
			Parameters:  Schema,
		},
		ForceTool: true,
	})
	if err != nil {
		return General(), &ExtractionError{Err: err}
	}

	var raw extracted
	if err := ai.DecodeStructured(Schema, resp, &raw); err != nil {
		return General(), &ExtractionError{Err: err}
	}
	e := raw.normalize()
	s.metrics.IntentClassified(string(e.Intent))
	s.logger.Debug("message classified",
		zap.String("intent", string(e.Intent)),
		zap.String("category", string(e.Category)),
		zap.Int("scenarios", len(e.Scenarios)),
	)
	return e, nil
}

func (r extracted) normalize() Extraction {
	e := Extraction{
		Intent:           r.Intent,
		Category:         r.Category,
		Origin:           strings.TrimSpace(r.Origin),
		Destination:      strings.TrimSpace(r.Destination),
		DepartureAirport: strings.ToUpper(strings.TrimSpace(r.DepartureAirport)),
		ArrivalAirport:   strings.ToUpper(strings.TrimSpace(r.ArrivalAirport)),
		Cremated:         r.Cremated,
		Days:             max(r.Days, 0),
		Patient: types.PatientProfile{
			Diagnosis:     types.StringPtr(strings.TrimSpace(r.Patient.Diagnosis)),
			Consciousness: types.StringPtr(strings.TrimSpace(r.Patient.Consciousness)),
			Mobility:      types.StringPtr(strings.TrimSpace(r.Patient.Mobility)),
		},
	}
	for _, sc := range r.Scenarios {
		if sc = strings.TrimSpace(sc); sc != "" {
			e.Scenarios = append(e.Scenarios, sc)
		}
	}
	if e.Category == "" && e.Intent != IntentGeneral {
		e.Category = plan.CategoryAir
	}
	return e
}
