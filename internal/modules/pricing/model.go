// README: Rate table model: priced items, their formulas and the plan attributes they apply to.
package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"medquote/internal/modules/plan"
)

// Formula decides which of distance, days and crew size an item's price scales with.
type Formula string

const (
	FormulaFlat          Formula = "FLAT"
	FormulaPerKm         Formula = "PER_KM"
	FormulaPerKmPerCrew  Formula = "PER_KM_PER_CREW"
	FormulaPerDay        Formula = "PER_DAY"
	FormulaPerDayPerCrew Formula = "PER_DAY_PER_CREW"
)

func (f Formula) Valid() bool {
	switch f {
	case FormulaFlat, FormulaPerKm, FormulaPerKmPerCrew, FormulaPerDay, FormulaPerDayPerCrew:
		return true
	}
	return false
}

// DistanceBased reports whether the formula consults the route distance.
func (f Formula) DistanceBased() bool {
	return f == FormulaPerKm || f == FormulaPerKmPerCrew
}

func (f *Formula) UnmarshalText(b []byte) error {
	v := Formula(strings.ToUpper(strings.TrimSpace(string(b))))
	if !v.Valid() {
		return fmt.Errorf("unknown formula %q", string(b))
	}
	*f = v
	return nil
}

// Qualifiers restrict an item to plans with matching attributes. Every present
// qualifier must match.
type Qualifiers struct {
	TransportMode   plan.TransportMode   `yaml:"transportMode,omitempty" json:"transportMode,omitempty"`
	Role            plan.Role            `yaml:"role,omitempty" json:"role,omitempty"`
	SeatClass       plan.SeatClass       `yaml:"seatClass,omitempty" json:"seatClass,omitempty"`
	Equipment       string               `yaml:"equipment,omitempty" json:"equipment,omitempty"`
	MedicationLevel plan.MedicationLevel `yaml:"medicationLevel,omitempty" json:"medicationLevel,omitempty"`
	Cremated        *bool                `yaml:"cremated,omitempty" json:"cremated,omitempty"`
}

const (
	EquipmentVentilator = "ventilator"
	EquipmentECMO       = "ecmo"
)

func (q *Qualifiers) Match(p plan.TransportPlan) bool {
	if q == nil {
		return true
	}
	if q.TransportMode != "" && q.TransportMode != p.TransportMode {
		return false
	}
	if q.Role != "" && !p.Crew.Has(q.Role) {
		return false
	}
	if q.SeatClass != "" && q.SeatClass != p.SeatClass {
		return false
	}
	if q.MedicationLevel != "" && q.MedicationLevel != p.MedicationLevel {
		return false
	}
	if q.Cremated != nil && *q.Cremated != p.Cremated {
		return false
	}
	switch q.Equipment {
	case "":
	case EquipmentVentilator:
		if !p.Equipment.Ventilator {
			return false
		}
	case EquipmentECMO:
		if !p.Equipment.ECMO {
			return false
		}
	default:
		return false
	}
	return true
}

type RateItem struct {
	Item       string          `yaml:"item"`
	UnitPrice  decimal.Decimal `yaml:"unitPrice"`
	Formula    Formula         `yaml:"formula"`
	Qualifiers *Qualifiers     `yaml:"qualifiers,omitempty"`
	// Bundle items are fixed packages that replace the category's distance-priced items.
	Bundle bool `yaml:"bundle,omitempty"`
}

// Line is one row of a cost breakdown.
type Line struct {
	Item   string          `json:"item"`
	Amount decimal.Decimal `json:"amount"`
}

// CostBreakdown lists one line per distinct item name, in rate table order.
type CostBreakdown struct {
	Category plan.Category   `json:"category"`
	Lines    []Line          `json:"lines"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
}

// Amount returns the accumulated amount for item, or zero when absent.
func (b CostBreakdown) Amount(item string) decimal.Decimal {
	for _, l := range b.Lines {
		if l.Item == item {
			return l.Amount
		}
	}
	return decimal.Zero
}

func (b CostBreakdown) Has(item string) bool {
	for _, l := range b.Lines {
		if l.Item == item {
			return true
		}
	}
	return false
}
