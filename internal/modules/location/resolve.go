package location

import (
	"slices"
	"strings"
)

// Country suffixes tried in the last geocoding tier, most frequent first.
var DefaultCountries = []string{
	"South Korea",
	"Vietnam",
	"Philippines",
	"Thailand",
	"Japan",
	"China",
	"Indonesia",
	"Malaysia",
	"Singapore",
	"United States",
}

// lower-case spellings that mark a text as already naming a country
var countryNames = []string{
	"south korea", "korea", "republic of korea", "대한민국", "한국",
	"vietnam", "viet nam", "việt nam", "베트남",
	"philippines", "thailand", "japan", "china", "indonesia", "malaysia", "singapore",
	"united states", "usa", "united kingdom", "uk", "germany", "france", "australia",
	"united arab emirates", "uae", "taiwan", "hong kong", "cambodia", "laos", "myanmar", "mongolia",
}

var institutionWords = []string{
	"hospital", "clinic", "medical", "center", "centre", "university", "general",
	"infirmary", "hospice", "institute", "병원", "의료원", "bệnh", "viện",
}

func splitSegments(place string) []string {
	fields := strings.FieldsFunc(place, func(r rune) bool {
		return r == ',' || r == '/' || r == ';' || r == '(' || r == ')'
	})
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func isInstitutionWord(w string) bool {
	w = strings.ToLower(strings.Trim(w, ".-'"))
	return slices.Contains(institutionWords, w)
}

// localityOf keeps the words after the last institution word ("Cho Ray Hospital
// Ho Chi Minh" -> "Ho Chi Minh"), or the non-institution words when nothing follows.
func localityOf(words []string) string {
	last := -1
	for i, w := range words {
		if isInstitutionWord(w) {
			last = i
		}
	}
	if last >= 0 && last < len(words)-1 {
		return strings.Join(words[last+1:], " ")
	}
	var keep []string
	for _, w := range words {
		if !isInstitutionWord(w) {
			keep = append(keep, w)
		}
	}
	return strings.Join(keep, " ")
}

// trailingCountry splits a recognised country name off the end of words. When
// none is recognised the last word is taken as the country.
func trailingCountry(words []string) (country string, rest []string) {
	lower := make([]string, len(words))
	for i, w := range words {
		lower[i] = strings.ToLower(w)
	}
	for n := min(4, len(words)-1); n >= 1; n-- {
		tail := strings.Join(lower[len(words)-n:], " ")
		if slices.Contains(countryNames, tail) {
			return strings.Join(words[len(words)-n:], " "), words[:len(words)-n]
		}
	}
	if len(words) < 2 {
		return "", nil
	}
	return words[len(words)-1], words[:len(words)-1]
}

// rewriteLocalityCountry reduces free text to a coarse "locality, country" query.
func rewriteLocalityCountry(place string) (string, bool) {
	var locality, country string
	segs := splitSegments(place)
	switch {
	case len(segs) >= 3:
		locality, country = segs[len(segs)-2], segs[len(segs)-1]
	case len(segs) == 2:
		locality, country = localityOf(strings.Fields(segs[0])), segs[1]
	case len(segs) == 1:
		var rest []string
		country, rest = trailingCountry(strings.Fields(segs[0]))
		locality = localityOf(rest)
	}
	if locality == "" || country == "" {
		return "", false
	}
	out := locality + ", " + country
	if strings.EqualFold(out, strings.TrimSpace(place)) {
		return "", false
	}
	return out, true
}

func namesCountry(place string) bool {
	lower := " " + strings.Join(strings.Fields(strings.ToLower(strings.NewReplacer(",", " ", ".", " ").Replace(place))), " ") + " "
	for _, c := range countryNames {
		if strings.Contains(lower, " "+c+" ") {
			return true
		}
	}
	return false
}

// suffixCandidates lists the free-text queries of the last tier: the text
// itself, then the text qualified by each country unless it already names one.
func suffixCandidates(place string, countries []string) []string {
	out := []string{place}
	if namesCountry(place) {
		return out
	}
	for _, c := range countries {
		out = append(out, place+", "+c)
	}
	return out
}
