package intent

import (
	"regexp"
	"strings"
)

var pricingProbes = []*regexp.Regexp{
	regexp.MustCompile(`how (is|was|are|were|do you|did you) .*(price|cost|quote|fee|fare)s? .*(calculated|computed|derived|worked out)`),
	regexp.MustCompile(`how (do|did) you (calculate|compute|price|derive)`),
	// "how the price is calculated", "how is this calculated", "how you computed it"; stays inside one sentence
	regexp.MustCompile(`\bhow (is|was|are|were|do|does|did|you|the|this|that|these|it|they|we|your)\b[^.?!]*\b(calculat|comput)`),
	regexp.MustCompile(`\bformulas?\b`),
	regexp.MustCompile(`\b(unit|base) (price|rate|cost)s?\b`),
	regexp.MustCompile(`\b(rate|price|pricing) (table|card|sheet|list)\b`),
	regexp.MustCompile(`\b(pricing|cost|price) (formula|logic|algorithm|model)s?\b`),
	regexp.MustCompile(`\bper[- ](km|kilometer|kilometre|day|crew)\b.*\b(rate|price|cost)\b`),
	regexp.MustCompile(`\b(markup|profit margin)\b`),
}

var pricingProbesKo = []string{
	"단가",
	"요율",
	"원가",
	"마진",
	"계산식",
	"계산 방법",
	"계산방법",
	"계산법",
	"계산 방식",
	"산출 근거",
	"산출 방식",
	"산정 방식",
	"어떻게 계산",
	"가격표",
}

// RevealsPricing reports whether message asks for pricing internals (unit
// prices, rate tables or formulas). Such requests are refused whatever the
// classifier decides.
func RevealsPricing(message string) bool {
	m := strings.ToLower(strings.Join(strings.Fields(message), " "))
	for _, re := range pricingProbes {
		if re.MatchString(m) {
			return true
		}
	}
	for _, p := range pricingProbesKo {
		if strings.Contains(m, p) {
			return true
		}
	}
	return false
}
