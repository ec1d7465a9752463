package types

// PatientProfile is the clinical summary a quote is planned from. Nil fields
// are unknown.
type PatientProfile struct {
	Diagnosis     *string `json:"diagnosis,omitempty"`
	Consciousness *string `json:"consciousness,omitempty"`
	Mobility      *string `json:"mobility,omitempty"`
}

// Merge overlays the present fields of partial onto p.
func (p PatientProfile) Merge(partial PatientProfile) PatientProfile {
	if partial.Diagnosis != nil {
		p.Diagnosis = partial.Diagnosis
	}
	if partial.Consciousness != nil {
		p.Consciousness = partial.Consciousness
	}
	if partial.Mobility != nil {
		p.Mobility = partial.Mobility
	}
	return p
}

func (p PatientProfile) IsZero() bool {
	return p.Diagnosis == nil && p.Consciousness == nil && p.Mobility == nil
}

// StringPtr returns nil for blank input.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ValueOr dereferences s or returns def when s is nil.
func ValueOr(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}
