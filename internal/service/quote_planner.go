package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"medquote/internal/ai"
	"medquote/internal/logging"
	"medquote/internal/metrics"
	"medquote/internal/modules/intent"
	"medquote/internal/modules/location"
	"medquote/internal/modules/plan"
	"medquote/internal/modules/pricing"
	"medquote/internal/modules/session"
	"medquote/internal/types"
)

const generalSystemPrompt = `You are the assistant of a medical transport company that arranges
medical escort flights, repatriation of remains and medical standby at events.
Answer questions about the service briefly and politely. Never state prices,
unit prices, rates or how prices are calculated; offer to prepare a quote instead.`

// Classifier extracts intent and quote parameters from a chat message.
type Classifier interface {
	Classify(ctx context.Context, message string, history []ai.Message) (intent.Extraction, error)
}

// ItineraryPlanner resolves pickup and destination into priced route legs.
type ItineraryPlanner interface {
	PlanItinerary(ctx context.Context, req location.ItineraryRequest) (location.Itinerary, error)
}

// PlanDeriver produces a transport plan for a patient. It never fails.
type PlanDeriver interface {
	Derive(ctx context.Context, profile types.PatientProfile, distanceKm float64) plan.TransportPlan
}

type Request struct {
	SessionID string
	Message   string
	Patient   types.PatientProfile
	// Days overrides the engagement length; zero means unspecified.
	Days int
}

type Response struct {
	SessionID string `json:"sessionId"`
	Reply     string `json:"reply"`
}

type PlannerDeps struct {
	Sessions    *session.Service
	Classifier  Classifier
	Itineraries ItineraryPlanner
	Plans       PlanDeriver
	Pricing     *pricing.Service
	Chat        ai.LLMProvider
	Composer    *Composer
	DefaultDays int
	Logger      *zap.Logger
	Metrics     *metrics.Collector
}

// QuotePlanner orchestrates one chat turn: classification, location
// resolution, plan generation, pricing and reply composition.
type QuotePlanner struct {
	sessions    *session.Service
	classifier  Classifier
	itineraries ItineraryPlanner
	plans       PlanDeriver
	pricing     *pricing.Service
	chat        ai.LLMProvider
	composer    *Composer
	defaultDays int
	logger      *zap.Logger
	metrics     *metrics.Collector
}

func NewQuotePlanner(deps PlannerDeps) *QuotePlanner {
	p := &QuotePlanner{
		sessions:    deps.Sessions,
		classifier:  deps.Classifier,
		itineraries: deps.Itineraries,
		plans:       deps.Plans,
		pricing:     deps.Pricing,
		chat:        deps.Chat,
		composer:    deps.Composer,
		defaultDays: deps.DefaultDays,
		logger:      logging.OrNop(deps.Logger),
		metrics:     deps.Metrics,
	}
	if p.sessions == nil {
		p.sessions = session.NewService(nil)
	}
	if p.composer == nil {
		p.composer = NewComposer()
	}
	if p.defaultDays <= 0 {
		p.defaultDays = 3
	}
	return p
}

// Handle runs one chat turn. The session is held for the whole turn so that
// concurrent turns on one session are applied in order. A non-nil error is
// always accompanied by an apologetic reply.
func (p *QuotePlanner) Handle(ctx context.Context, req Request) (resp Response, err error) {
	sess, release, err := p.sessions.Checkout(ctx, req.SessionID)
	if err != nil {
		return Response{SessionID: req.SessionID, Reply: p.composer.Apology()}, fmt.Errorf("checkout session: %w", err)
	}
	defer release()

	log := p.logger.With(zap.String("session_id", sess.ID))
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while handling chat turn", zap.Any("panic", r), zap.Stack("stack"))
			resp = Response{SessionID: sess.ID, Reply: p.composer.Apology()}
			err = nil
		}
	}()

	history := toAIHistory(sess.Recent(session.HistoryWindow))
	sess.MergePatient(req.Patient)

	reply := p.reply(ctx, log, sess, req, history)

	now := p.sessions.Now()
	sess.AppendTurn(session.RoleUser, req.Message, now)
	sess.AppendTurn(session.RoleAssistant, reply, now)
	if err := p.sessions.Commit(ctx, sess); err != nil {
		log.Warn("failed to save session", zap.Error(err))
	}
	return Response{SessionID: sess.ID, Reply: reply}, nil
}

func (p *QuotePlanner) reply(ctx context.Context, log *zap.Logger, sess *session.Session, req Request, history []ai.Message) string {
	// Pricing-internals requests are refused whatever the classifier says.
	if intent.RevealsPricing(req.Message) {
		log.Info("refused pricing internals request")
		return p.composer.Refusal()
	}

	ext, err := p.classify(ctx, req.Message, history)
	if err != nil {
		log.Warn("intent extraction failed, answering as general question", zap.Error(err))
		ext = intent.General()
	}
	sess.MergePatient(ext.Patient)

	switch ext.Intent {
	case intent.IntentExplainCost:
		cat := categoryOrDefault(ext.Category)
		return p.composer.CostStructure(cat, p.pricing.Table().ItemNames(cat))
	case intent.IntentCalculateCost:
		return p.quote(ctx, log, sess, req, ext)
	default:
		return p.general(ctx, log, history, req.Message)
	}
}

func (p *QuotePlanner) classify(ctx context.Context, message string, history []ai.Message) (intent.Extraction, error) {
	if p.classifier == nil {
		return intent.General(), errors.New("no classifier configured")
	}
	return p.classifier.Classify(ctx, message, history)
}

func (p *QuotePlanner) quote(ctx context.Context, log *zap.Logger, sess *session.Session, req Request, ext intent.Extraction) string {
	cat := categoryOrDefault(ext.Category)
	days := firstPositive(req.Days, ext.Days, p.defaultDays)

	if cat == plan.CategoryEvent {
		ep := plan.EventPlan()
		breakdown := p.pricing.Compute(cat, ep, 0, days)
		p.metrics.QuoteProduced(string(cat))
		return p.composer.Quote(Quote{Plan: ep, Breakdown: breakdown, Days: days})
	}

	if missing := ext.MissingLocations(); len(missing) > 0 {
		return p.composer.Clarify(missing)
	}
	if p.itineraries == nil {
		log.Error("no itinerary planner configured")
		return p.composer.Apology()
	}

	it, err := p.itineraries.PlanItinerary(ctx, location.ItineraryRequest{
		Origin:           ext.Origin,
		Destination:      ext.Destination,
		DepartureAirport: ext.DepartureAirport,
		ArrivalAirport:   ext.ArrivalAirport,
	})
	if err != nil {
		var nf *location.NotFoundError
		if errors.As(err, &nf) {
			log.Info("location not found", zap.String("place", nf.Place))
			return p.composer.NotFound(nf.Place)
		}
		log.Error("itinerary planning failed", zap.Error(err))
		return p.composer.Apology()
	}

	km := it.BillableKm()
	base := plan.DefaultPlan()
	if p.plans != nil {
		base = p.plans.Derive(ctx, sess.Patient, km)
	}
	base = plan.ForCategory(base, cat, ext.Cremated != nil && *ext.Cremated)

	variants := plan.Variants(base, ext.Scenarios)
	if len(variants) > 1 {
		totals := make([]ScenarioTotal, 0, len(variants))
		for _, v := range variants {
			b := p.pricing.Compute(cat, v.Plan, km, days)
			totals = append(totals, ScenarioTotal{Label: v.Label, Total: types.NewMoney(b.Total, b.Currency)})
		}
		p.metrics.QuoteProduced(string(cat))
		return p.composer.Comparison(cat, totals)
	}
	if len(variants) == 1 {
		base = variants[0].Plan
	}

	breakdown := p.pricing.Compute(cat, base, km, days)
	p.metrics.QuoteProduced(string(cat))
	log.Info("quote produced",
		zap.String("category", string(cat)),
		zap.String("transport_mode", string(base.TransportMode)),
		zap.Float64("billable_km", km),
		zap.Int("days", days),
	)
	return p.composer.Quote(Quote{Plan: base, Itinerary: &it, Breakdown: breakdown, Days: days})
}

func (p *QuotePlanner) general(ctx context.Context, log *zap.Logger, history []ai.Message, message string) string {
	if p.chat == nil {
		return GeneralFallbackReply
	}
	msgs := append(history, ai.Message{Role: ai.RoleUser, Content: message})
	resp, err := p.chat.Complete(ctx, ai.Request{System: generalSystemPrompt, Messages: msgs})
	if err != nil {
		log.Warn("general reply failed", zap.Error(err))
		return GeneralFallbackReply
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return GeneralFallbackReply
	}
	return strings.TrimSpace(resp.Text)
}

func toAIHistory(turns []session.Turn) []ai.Message {
	out := make([]ai.Message, 0, len(turns))
	for _, t := range turns {
		role := ai.RoleUser
		if t.Role == session.RoleAssistant {
			role = ai.RoleAssistant
		}
		out = append(out, ai.Message{Role: role, Content: t.Content})
	}
	return out
}

func categoryOrDefault(c plan.Category) plan.Category {
	if c.Valid() {
		return c
	}
	return plan.CategoryAir
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
