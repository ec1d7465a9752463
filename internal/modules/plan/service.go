package plan

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"medquote/internal/ai"
	"medquote/internal/logging"
	"medquote/internal/metrics"
	"medquote/internal/types"
)

const toolName = "submit_transport_plan"

const systemPrompt = `You are a medical escort planner for international patient transfers.
Given the patient's diagnosis, consciousness, mobility and the flight distance,
decide the clinical risk, how the patient should travel and who must escort them.
Answer only by calling submit_transport_plan.`

// Schema is the contract a generated plan must satisfy.
var Schema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"risk": {
			Type: jsonschema.String,
			Enum: []string{string(RiskLow), string(RiskMedium), string(RiskHigh)},
		},
		"transportMode": {
			Type: jsonschema.String,
			Enum: []string{string(ModeCivil), string(ModeAirAmbulance), string(ModeCharter), string(ModeShip)},
		},
		"seatClass": {
			Type:        jsonschema.String,
			Description: "Seat on a civil flight. Stretcher for patients who cannot sit upright.",
			Enum:        []string{string(SeatBusiness), string(SeatStretcher)},
		},
		"crew": {
			Type:        jsonschema.Array,
			Description: "Escorting medical staff",
			Items: &jsonschema.Definition{
				Type: jsonschema.String,
				Enum: []string{string(RoleDoctor), string(RoleNurse), string(RoleStaff)},
			},
		},
		"equipment": {
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"ventilator": {Type: jsonschema.Boolean},
				"ecmo":       {Type: jsonschema.Boolean},
			},
			Required: []string{"ventilator", "ecmo"},
		},
		"medicationLevel": {
			Type: jsonschema.String,
			Enum: []string{string(MedicationLow), string(MedicationMedium), string(MedicationHigh)},
		},
		"notes": {
			Type:        jsonschema.Array,
			Description: "Short clinical remarks for the escort team",
			Items:       &jsonschema.Definition{Type: jsonschema.String},
		},
	},
	Required: []string{"risk", "transportMode", "seatClass", "crew", "equipment", "medicationLevel"},
}

type generatedPlan struct {
	Risk            Risk            `json:"risk"`
	TransportMode   TransportMode   `json:"transportMode"`
	SeatClass       SeatClass       `json:"seatClass"`
	Crew            []Role          `json:"crew"`
	Equipment       Equipment       `json:"equipment"`
	MedicationLevel MedicationLevel `json:"medicationLevel"`
	Notes           []string        `json:"notes"`
}

type Generator struct {
	llm     ai.LLMProvider
	logger  *zap.Logger
	metrics *metrics.Collector
}

func NewGenerator(llm ai.LLMProvider, logger *zap.Logger, m *metrics.Collector) *Generator {
	return &Generator{llm: llm, logger: logging.OrNop(logger), metrics: m}
}

// Derive asks the model for a transport plan. It never fails: any provider,
// schema or invariant error yields DefaultPlan.
func (g *Generator) Derive(ctx context.Context, profile types.PatientProfile, distanceKm float64) TransportPlan {
	p, err := g.generate(ctx, profile, distanceKm)
	if err != nil {
		g.logger.Warn("plan generation failed, using default plan", zap.Error(err))
		g.metrics.PlanFellBack()
		return DefaultPlan()
	}
	return p
}

func (g *Generator) generate(ctx context.Context, profile types.PatientProfile, distanceKm float64) (TransportPlan, error) {
	if g.llm == nil {
		return TransportPlan{}, fmt.Errorf("no AI provider configured")
	}
	resp, err := g.llm.Complete(ctx, ai.Request{
		System: systemPrompt,
		Messages: []ai.Message{{
			Role:    ai.RoleUser,
			Content: describePatient(profile, distanceKm),
		}},
		Tool: &ai.Tool{
			Name:        toolName,
			Description: "Submit the transport plan for this patient",
			Parameters:  Schema,
		},
		ForceTool: true,
	})
	if err != nil {
		return TransportPlan{}, err
	}

	var gp generatedPlan
	if err := ai.DecodeStructured(Schema, resp, &gp); err != nil {
		return TransportPlan{}, err
	}
	p := TransportPlan{
		Category:        CategoryAir,
		Risk:            gp.Risk,
		TransportMode:   gp.TransportMode,
		SeatClass:       gp.SeatClass,
		Crew:            NewCrew(gp.Crew...),
		Equipment:       gp.Equipment,
		MedicationLevel: gp.MedicationLevel,
		Notes:           gp.Notes,
	}
	if p.Notes == nil {
		p.Notes = []string{}
	}
	if err := p.Validate(); err != nil {
		return TransportPlan{}, fmt.Errorf("invalid generated plan: %w", err)
	}
	return p, nil
}

func describePatient(profile types.PatientProfile, distanceKm float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Diagnosis: %s\n", types.ValueOr(profile.Diagnosis, "unknown"))
	fmt.Fprintf(&b, "Consciousness: %s\n", types.ValueOr(profile.Consciousness, "unknown"))
	fmt.Fprintf(&b, "Mobility: %s\n", types.ValueOr(profile.Mobility, "unknown"))
	fmt.Fprintf(&b, "Distance: %.0f km", distanceKm)
	return b.String()
}
