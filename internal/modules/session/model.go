// README: Conversation session model: turn history and the accumulated patient profile.
package session

import (
	"slices"
	"time"

	"medquote/internal/types"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryWindow bounds how many recent turns are replayed to the AI.
const HistoryWindow = 12

type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

type Session struct {
	ID        string               `json:"id"`
	History   []Turn               `json:"history"`
	Patient   types.PatientProfile `json:"patient"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

func newSession(id string, now time.Time) *Session {
	return &Session{ID: id, History: []Turn{}, CreatedAt: now, UpdatedAt: now}
}

// MergePatient overlays the present fields of partial onto the stored profile
// and returns the result. Merging the same partial twice is a no-op.
func (s *Session) MergePatient(partial types.PatientProfile) types.PatientProfile {
	s.Patient = s.Patient.Merge(partial)
	return s.Patient
}

func (s *Session) AppendTurn(role, content string, at time.Time) {
	s.History = append(s.History, Turn{Role: role, Content: content, At: at})
	s.UpdatedAt = at
}

// Recent returns at most n of the latest turns, oldest first.
func (s *Session) Recent(n int) []Turn {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	start := max(len(s.History)-n, 0)
	return slices.Clone(s.History[start:])
}

func (s *Session) clone() *Session {
	out := *s
	out.History = slices.Clone(s.History)
	return &out
}
