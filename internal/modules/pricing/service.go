// README: Pricing service computes quote breakdowns from the rate table.
package pricing

import (
	"github.com/shopspring/decimal"

	"medquote/internal/modules/plan"
)

type Service struct {
	table *RateTable
}

func NewService(table *RateTable) *Service {
	return &Service{table: table}
}

func (s *Service) Table() *RateTable { return s.table }

// Compute prices a plan. The breakdown is rebuilt from scratch on every call
// and its total is the sum of its lines.
func (s *Service) Compute(category plan.Category, p plan.TransportPlan, distanceKm float64, days int) CostBreakdown {
	if distanceKm < 0 || category == plan.CategoryEvent {
		distanceKm = 0
	}
	if days < 0 {
		days = 0
	}

	items := s.table.items[category]
	bundled := false
	for i := range items {
		if items[i].Bundle && items[i].Qualifiers.Match(p) {
			bundled = true
			break
		}
	}

	km := decimal.NewFromFloat(distanceKm)
	d := decimal.NewFromInt(int64(days))
	crew := decimal.NewFromInt(int64(p.Crew.Size()))

	out := CostBreakdown{Category: category, Currency: s.table.currency, Total: decimal.Zero}
	index := make(map[string]int)
	for _, it := range items {
		if !it.Qualifiers.Match(p) {
			continue
		}
		if bundled && it.Formula.DistanceBased() {
			continue
		}
		amount := apply(it, km, d, crew)
		if i, ok := index[it.Item]; ok {
			out.Lines[i].Amount = out.Lines[i].Amount.Add(amount)
		} else {
			index[it.Item] = len(out.Lines)
			out.Lines = append(out.Lines, Line{Item: it.Item, Amount: amount})
		}
		out.Total = out.Total.Add(amount)
	}
	return out
}

func apply(it RateItem, km, days, crew decimal.Decimal) decimal.Decimal {
	switch it.Formula {
	case FormulaPerKm:
		return it.UnitPrice.Mul(km)
	case FormulaPerKmPerCrew:
		return it.UnitPrice.Mul(km).Mul(crew)
	case FormulaPerDay:
		return it.UnitPrice.Mul(days)
	case FormulaPerDayPerCrew:
		return it.UnitPrice.Mul(days).Mul(crew)
	case FormulaFlat:
		return it.UnitPrice
	}
	return decimal.Zero
}
