package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medquote/internal/ai"
	"medquote/internal/modules/intent"
	"medquote/internal/modules/location"
	"medquote/internal/modules/plan"
	"medquote/internal/modules/pricing"
	"medquote/internal/modules/session"
	"medquote/internal/types"
)

type fakeClassifier struct {
	ext   intent.Extraction
	err   error
	calls int
}

func (f *fakeClassifier) Classify(context.Context, string, []ai.Message) (intent.Extraction, error) {
	f.calls++
	return f.ext, f.err
}

type fakeItineraries struct {
	mu    sync.Mutex
	it    location.Itinerary
	err   error
	calls int
}

func (f *fakeItineraries) PlanItinerary(context.Context, location.ItineraryRequest) (location.Itinerary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.it, f.err
}

type fixedPlan struct {
	plan    plan.TransportPlan
	profile types.PatientProfile
}

func (f *fixedPlan) Derive(_ context.Context, profile types.PatientProfile, _ float64) plan.TransportPlan {
	f.profile = profile
	return f.plan
}

type fakeChat struct {
	text string
	err  error
}

func (f fakeChat) Name() string { return "fake" }

func (f fakeChat) Complete(context.Context, ai.Request) (*ai.Response, error) {
	return &ai.Response{Text: f.text}, f.err
}

var testItinerary = location.Itinerary{Legs: []location.Leg{
	{Kind: location.LegDeparture, From: "Cho Ray Hospital", To: "SGN", Route: location.RouteInfo{DistanceKm: 8, DurationHr: 0.16}},
	{Kind: location.LegFlight, From: "SGN", To: "ICN", Route: location.RouteInfo{DistanceKm: 3580, DurationHr: 4.5}},
	{Kind: location.LegArrival, From: "ICN", To: "Seoul National University Hospital", Route: location.RouteInfo{DistanceKm: 60, DurationHr: 1.5}},
}}

type harness struct {
	planner    *QuotePlanner
	classifier *fakeClassifier
	routes     *fakeItineraries
	plans      *fixedPlan
	pricing    *pricing.Service
	sessions   *session.Service
}

func newHarness(t *testing.T, ext intent.Extraction) *harness {
	t.Helper()
	table, err := pricing.Default()
	require.NoError(t, err)
	h := &harness{
		classifier: &fakeClassifier{ext: ext},
		routes:     &fakeItineraries{it: testItinerary},
		plans:      &fixedPlan{plan: plan.DefaultPlan()},
		pricing:    pricing.NewService(table),
		sessions:   session.NewService(session.NewMemoryStore()),
	}
	h.planner = NewQuotePlanner(PlannerDeps{
		Sessions:    h.sessions,
		Classifier:  h.classifier,
		Itineraries: h.routes,
		Plans:       h.plans,
		Pricing:     h.pricing,
		Chat:        fakeChat{text: "We operate across Asia."},
		DefaultDays: 3,
	})
	return h
}

func calculate(origin, destination string, scenarios ...string) intent.Extraction {
	return intent.Extraction{
		Intent:      intent.IntentCalculateCost,
		Category:    plan.CategoryAir,
		Origin:      origin,
		Destination: destination,
		Scenarios:   scenarios,
	}
}

func TestHandle_RefusesPricingInternals(t *testing.T) {
	// even a confident CALCULATE_COST classification must not leak figures
	h := newHarness(t, calculate("Hanoi", "Seoul"))

	resp, err := h.planner.Handle(context.Background(), Request{Message: "How is this price calculated?"})
	require.NoError(t, err)
	assert.Equal(t, RefusalReply, resp.Reply)
	assert.Zero(t, h.classifier.calls)
	assert.Zero(t, h.routes.calls)
	assert.NotEmpty(t, resp.SessionID)
}

func TestHandle_ClarifiesMissingLocations(t *testing.T) {
	h := newHarness(t, calculate("Hanoi", ""))

	resp, err := h.planner.Handle(context.Background(), Request{Message: "quote from Hanoi please"})
	require.NoError(t, err)
	assert.Contains(t, resp.Reply, "destination")
	assert.Zero(t, h.routes.calls, "location resolver is not consulted")
}

func TestHandle_SingleQuote(t *testing.T) {
	h := newHarness(t, calculate("Cho Ray Hospital", "Seoul National University Hospital"))
	diag := types.StringPtr("intracranial hemorrhage")

	resp, err := h.planner.Handle(context.Background(), Request{Message: "how much?", Patient: types.PatientProfile{Diagnosis: diag}})
	require.NoError(t, err)

	want := h.pricing.Compute(plan.CategoryAir, plan.DefaultPlan(), 3580, 3)
	assert.Contains(t, resp.Reply, NewComposer().money(want.Total, "KRW"))
	assert.Contains(t, resp.Reply, Disclaimer)
	assert.Equal(t, "intracranial hemorrhage", *h.plans.profile.Diagnosis)

	sess, err := h.sessions.GetOrCreate(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.Len(t, sess.History, 2)
	assert.Equal(t, session.RoleUser, sess.History[0].Role)
	assert.Equal(t, resp.Reply, sess.History[1].Content)
	assert.Equal(t, "intracranial hemorrhage", *sess.Patient.Diagnosis)
}

func TestHandle_TwoScenarioComparison(t *testing.T) {
	h := newHarness(t, calculate("Cho Ray Hospital", "Seoul National University Hospital", "civil", "charter"))

	resp, err := h.planner.Handle(context.Background(), Request{Message: "compare civil and charter"})
	require.NoError(t, err)

	line := regexp.MustCompile(`^(\w+): ([\d,]+ KRW)$`)
	got := map[string]string{}
	for _, l := range strings.Split(resp.Reply, "\n") {
		if m := line.FindStringSubmatch(l); m != nil {
			got[m[1]] = m[2]
		}
	}
	require.Len(t, got, 2)

	c := NewComposer()
	for _, mode := range []plan.TransportMode{plan.ModeCivil, plan.ModeCharter} {
		single := plan.DefaultPlan()
		single.TransportMode = mode
		want := h.pricing.Compute(plan.CategoryAir, single, 3580, 3)
		assert.Equal(t, c.money(want.Total, "KRW"), got[string(mode)], "scenario %s", mode)
	}
}

func TestHandle_DeceasedUsesBundle(t *testing.T) {
	cremated := false
	ext := calculate("Manila", "Busan")
	ext.Category = plan.CategoryDeceased
	ext.Cremated = &cremated
	h := newHarness(t, ext)

	resp, err := h.planner.Handle(context.Background(), Request{Message: "repatriation quote"})
	require.NoError(t, err)
	assert.Contains(t, resp.Reply, "Repatriation of remains")
	assert.Contains(t, resp.Reply, "Repatriation:")
	assert.NotContains(t, resp.Reply, "Airfare:")
	assert.Contains(t, resp.Reply, "coffin")
}

func TestHandle_EventSkipsRouting(t *testing.T) {
	h := newHarness(t, intent.Extraction{Intent: intent.IntentCalculateCost, Category: plan.CategoryEvent, Days: 2})

	resp, err := h.planner.Handle(context.Background(), Request{Message: "medical team for a marathon"})
	require.NoError(t, err)
	assert.Zero(t, h.routes.calls)
	assert.NotContains(t, resp.Reply, Disclaimer)

	want := h.pricing.Compute(plan.CategoryEvent, plan.EventPlan(), 0, 2)
	assert.Contains(t, resp.Reply, NewComposer().money(want.Total, "KRW"))
}

func TestHandle_RequestDaysWin(t *testing.T) {
	ext := intent.Extraction{Intent: intent.IntentCalculateCost, Category: plan.CategoryEvent, Days: 2}
	h := newHarness(t, ext)

	resp, err := h.planner.Handle(context.Background(), Request{Message: "event", Days: 5})
	require.NoError(t, err)
	want := h.pricing.Compute(plan.CategoryEvent, plan.EventPlan(), 0, 5)
	assert.Contains(t, resp.Reply, NewComposer().money(want.Total, "KRW"))
}

func TestHandle_IntentFailureFallsBackToGeneral(t *testing.T) {
	h := newHarness(t, intent.Extraction{})
	h.classifier.err = &intent.ExtractionError{Err: errors.New("bad json")}

	resp, err := h.planner.Handle(context.Background(), Request{Message: "where do you operate?"})
	require.NoError(t, err)
	assert.Equal(t, "We operate across Asia.", resp.Reply)
	assert.Zero(t, h.routes.calls)
}

func TestHandle_GeneralFallbackWhenChatFails(t *testing.T) {
	h := newHarness(t, intent.General())
	h.planner.chat = fakeChat{err: errors.New("quota")}

	resp, err := h.planner.Handle(context.Background(), Request{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, GeneralFallbackReply, resp.Reply)
}

func TestHandle_ExplainCostListsItemNamesOnly(t *testing.T) {
	h := newHarness(t, intent.Extraction{Intent: intent.IntentExplainCost, Category: plan.CategoryAir})

	resp, err := h.planner.Handle(context.Background(), Request{Message: "what does a quote include?"})
	require.NoError(t, err)
	for _, name := range h.pricing.Table().ItemNames(plan.CategoryAir) {
		assert.Contains(t, resp.Reply, itemTitle(name))
	}
	assert.NotContains(t, resp.Reply, "KRW")
	assert.Zero(t, h.routes.calls)
}

func TestHandle_LocationNotFound(t *testing.T) {
	h := newHarness(t, calculate("Atlantis General", "Seoul"))
	h.routes.err = &location.NotFoundError{Place: "Atlantis General"}

	resp, err := h.planner.Handle(context.Background(), Request{Message: "quote"})
	require.NoError(t, err)
	assert.Equal(t, NewComposer().NotFound("Atlantis General"), resp.Reply)
}

type panicClassifier struct{}

func (panicClassifier) Classify(context.Context, string, []ai.Message) (intent.Extraction, error) {
	panic("boom")
}

func TestHandle_RecoversFromPanic(t *testing.T) {
	h := newHarness(t, intent.General())
	h.planner.classifier = panicClassifier{}

	resp, err := h.planner.Handle(context.Background(), Request{SessionID: "s1", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, ApologyReply, resp.Reply)
	assert.Equal(t, "s1", resp.SessionID)

	// the session lock was released
	_, release, err := h.sessions.Checkout(context.Background(), "s1")
	require.NoError(t, err)
	release()
}

func TestHandle_SameSessionTurnsAreSerialized(t *testing.T) {
	h := newHarness(t, intent.General())

	const turns = 10
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.planner.Handle(context.Background(), Request{SessionID: "shared", Message: "hello"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, err := h.sessions.GetOrCreate(context.Background(), "shared")
	require.NoError(t, err)
	assert.Len(t, sess.History, 2*turns)
}
