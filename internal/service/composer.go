// README: Composer renders quotes, comparisons, clarifications and refusals as chat replies.
package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"medquote/internal/modules/location"
	"medquote/internal/modules/plan"
	"medquote/internal/modules/pricing"
	"medquote/internal/types"
)

const (
	Disclaimer = "This is a non-binding estimate. The final price depends on carrier availability, " +
		"the attending physician's assessment and exchange rates at the time of booking."

	RefusalReply = "I'm sorry, but I can't share our unit prices, rate tables or how individual " +
		"amounts are calculated. I'm happy to prepare a quote or explain which items a quote includes."

	ApologyReply = "I'm sorry, something went wrong while preparing your answer. Please try again in a moment."

	GeneralFallbackReply = "I can estimate the cost of a medical escort flight, a repatriation of remains " +
		"or medical standby for an event. Tell me where the patient is and where they need to go."
)

var categoryTitles = map[plan.Category]string{
	plan.CategoryAir:      "Medical air transport",
	plan.CategoryDeceased: "Repatriation of remains",
	plan.CategoryEvent:    "Event medical support",
}

var modeTitles = map[plan.TransportMode]string{
	plan.ModeCivil:        "commercial flight",
	plan.ModeAirAmbulance: "air ambulance",
	plan.ModeCharter:      "charter flight",
	plan.ModeShip:         "ship",
}

var legTitles = map[location.LegKind]string{
	location.LegDeparture: "Ground transfer",
	location.LegFlight:    "Flight",
	location.LegArrival:   "Ground transfer",
	location.LegDirect:    "Ground transfer",
}

// Quote is everything the composer needs to render a single-scenario estimate.
type Quote struct {
	Plan      plan.TransportPlan
	Itinerary *location.Itinerary
	Breakdown pricing.CostBreakdown
	Days      int
}

// ScenarioTotal is one line of a multi-scenario comparison.
type ScenarioTotal struct {
	Label string
	Total types.Money
}

type Composer struct {
	printer *message.Printer
}

func NewComposer() *Composer {
	return &Composer{printer: message.NewPrinter(language.English)}
}

func (c *Composer) money(amount decimal.Decimal, currency string) string {
	return c.printer.Sprintf("%d %s", types.NewMoney(amount, currency).Whole(), currency)
}

// Quote renders a single estimate. Unit prices and coordinates never appear.
func (c *Composer) Quote(q Quote) string {
	var b strings.Builder
	p := q.Plan
	fmt.Fprintf(&b, "**%s estimate**\n\n", categoryTitle(p.Category))

	if p.Category != plan.CategoryEvent {
		fmt.Fprintf(&b, "- Risk level: %s\n", p.Risk)
		fmt.Fprintf(&b, "- Transport: %s", modeTitle(p.TransportMode))
		if p.TransportMode == plan.ModeCivil || p.SeatClass == plan.SeatCoffin {
			fmt.Fprintf(&b, " (%s)", p.SeatClass)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "- Escort team: %s\n", joinRoles(p.Crew))
	if eq := equipmentList(p.Equipment); eq != "" {
		fmt.Fprintf(&b, "- Equipment: %s\n", eq)
	}
	if p.Category == plan.CategoryAir {
		fmt.Fprintf(&b, "- Medication level: %s\n", p.MedicationLevel)
	}
	if q.Days > 0 {
		fmt.Fprintf(&b, "- Duration: %d day(s)\n", q.Days)
	}

	if q.Itinerary != nil && len(q.Itinerary.Legs) > 0 {
		b.WriteString("\n**Route**\n")
		for _, l := range q.Itinerary.Legs {
			fmt.Fprintf(&b, "- %s %s → %s: %s km, about %.1f h\n",
				legTitles[l.Kind], l.From, l.To, c.printer.Sprintf("%d", int64(l.Route.DistanceKm+0.5)), l.Route.DurationHr)
		}
	}

	b.WriteString("\n**Cost breakdown**\n")
	for _, line := range q.Breakdown.Lines {
		fmt.Fprintf(&b, "- %s: %s\n", itemTitle(line.Item), c.money(line.Amount, q.Breakdown.Currency))
	}
	fmt.Fprintf(&b, "- **Total: %s**\n", c.money(q.Breakdown.Total, q.Breakdown.Currency))

	if len(p.Notes) > 0 {
		b.WriteString("\n**Notes**\n")
		for _, n := range p.Notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	c.disclaim(&b, p.Category)
	return strings.TrimRight(b.String(), "\n")
}

// Comparison renders one "label: total" line per scenario.
func (c *Composer) Comparison(category plan.Category, scenarios []ScenarioTotal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s: scenario comparison**\n\n", categoryTitle(category))
	for _, s := range scenarios {
		fmt.Fprintf(&b, "%s: %s\n", s.Label, c.money(s.Total.Amount, s.Total.Currency))
	}
	c.disclaim(&b, category)
	return strings.TrimRight(b.String(), "\n")
}

func (c *Composer) disclaim(b *strings.Builder, category plan.Category) {
	if category != plan.CategoryEvent {
		fmt.Fprintf(b, "\n_%s_\n", Disclaimer)
	}
}

// CostStructure lists what a quote of this category is made of, by item name only.
func (c *Composer) CostStructure(category plan.Category, items []string) string {
	if len(items) == 0 {
		return GeneralFallbackReply
	}
	var b strings.Builder
	fmt.Fprintf(&b, "A %s quote is made up of the following items:\n", strings.ToLower(categoryTitle(category)))
	for _, it := range items {
		fmt.Fprintf(&b, "- %s\n", itemTitle(it))
	}
	b.WriteString("\nWhich items apply depends on the patient's condition, the transport mode and the route. " +
		"Send me the pickup and destination and I'll prepare an estimate.")
	return b.String()
}

func (c *Composer) Clarify(missing []string) string {
	switch len(missing) {
	case 0:
		return GeneralFallbackReply
	case 1:
		return fmt.Sprintf("To prepare the estimate I still need the %s. Which hospital, city or address should I use?", missing[0])
	default:
		return fmt.Sprintf("To prepare the estimate I still need the %s. Which hospitals, cities or addresses should I use?",
			strings.Join(missing, " and "))
	}
}

func (c *Composer) NotFound(place string) string {
	return fmt.Sprintf("I couldn't find %q on the map. Could you add the city and country, or give a nearby landmark?", place)
}

func (c *Composer) Refusal() string { return RefusalReply }

func (c *Composer) Apology() string { return ApologyReply }

func categoryTitle(cat plan.Category) string {
	if t, ok := categoryTitles[cat]; ok {
		return t
	}
	return "Transport"
}

func modeTitle(m plan.TransportMode) string {
	if t, ok := modeTitles[m]; ok {
		return t
	}
	return string(m)
}

func itemTitle(item string) string {
	s := strings.ReplaceAll(item, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func joinRoles(crew plan.Crew) string {
	names := make([]string, len(crew))
	for i, r := range crew {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

func equipmentList(e plan.Equipment) string {
	var out []string
	if e.Ventilator {
		out = append(out, "ventilator")
	}
	if e.ECMO {
		out = append(out, "ECMO")
	}
	return strings.Join(out, ", ")
}
