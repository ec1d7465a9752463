package plan

import "strings"

// Variant is one alternative of a multi-scenario quote.
type Variant struct {
	Label string
	Plan  TransportPlan
}

var modeAliases = map[string]TransportMode{
	"civil":         ModeCivil,
	"commercial":    ModeCivil,
	"airline":       ModeCivil,
	"stretcher":     ModeCivil,
	"airambulance":  ModeAirAmbulance,
	"air ambulance": ModeAirAmbulance,
	"air_ambulance": ModeAirAmbulance,
	"medevac":       ModeAirAmbulance,
	"charter":       ModeCharter,
	"private jet":   ModeCharter,
	"ship":          ModeShip,
	"ferry":         ModeShip,
	"sea":           ModeShip,
}

// ParseMode maps a free-text scenario label onto a transport mode.
func ParseMode(label string) (TransportMode, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	if m, ok := modeAliases[key]; ok {
		return m, true
	}
	key = strings.Join(strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(key)), " ")
	m, ok := modeAliases[key]
	return m, ok
}

// Variants derives one plan per recognised scenario by overriding the transport
// mode of the baseline. Unrecognised labels and repeated modes are skipped.
func Variants(base TransportPlan, scenarios []string) []Variant {
	seen := make(map[TransportMode]bool, len(scenarios))
	out := make([]Variant, 0, len(scenarios))
	for _, s := range scenarios {
		mode, ok := ParseMode(s)
		if !ok || seen[mode] {
			continue
		}
		seen[mode] = true
		p := base.clone()
		p.TransportMode = mode
		out = append(out, Variant{Label: string(mode), Plan: p})
	}
	return out
}
