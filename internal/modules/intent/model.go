// README: Intent model: what the user asked for and the quote parameters pulled out of the message.
package intent

import (
	"fmt"
	"strings"

	"medquote/internal/modules/plan"
	"medquote/internal/types"
)

type Intent string

const (
	IntentGeneral       Intent = "GENERAL"
	IntentExplainCost   Intent = "EXPLAIN_COST"
	IntentCalculateCost Intent = "CALCULATE_COST"
)

// Extraction is the classified message. Zero values mean "not mentioned".
type Extraction struct {
	Intent           Intent
	Category         plan.Category
	Origin           string
	Destination      string
	DepartureAirport string
	ArrivalAirport   string
	Scenarios        []string
	Cremated         *bool
	Days             int
	Patient          types.PatientProfile
}

// General is the extraction used when classification is unavailable.
func General() Extraction { return Extraction{Intent: IntentGeneral} }

// NeedsLocations reports whether a quote of this category is priced on a route.
func (e Extraction) NeedsLocations() bool { return e.Category != plan.CategoryEvent }

// MissingLocations names the route endpoints the user still has to supply.
func (e Extraction) MissingLocations() []string {
	if !e.NeedsLocations() {
		return nil
	}
	var missing []string
	if strings.TrimSpace(e.Origin) == "" {
		missing = append(missing, "origin")
	}
	if strings.TrimSpace(e.Destination) == "" {
		missing = append(missing, "destination")
	}
	return missing
}

// ExtractionError wraps any failure to obtain a usable classification.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("intent extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
