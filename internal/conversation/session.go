package conversation

import (
	"time"

	"github.com/google/uuid"

	"voicebridge/internal/core"
	"voicebridge/internal/llm"
)

// Session is the in-memory log of one profile-bound conversation.
// Callers serialize access; a Session is not safe for concurrent use.
type Session struct {
	state *core.Session
}

func NewSession(profile *core.Profile) *Session {
	return &Session{
		state: &core.Session{
			ID:        uuid.NewString(),
			Profile:   profile,
			StartedAt: time.Now().UTC(),
			Metadata:  make(map[string]string),
		},
	}
}

func (s *Session) ID() string             { return s.state.ID }
func (s *Session) Profile() *core.Profile { return s.state.Profile }

// State exposes the underlying record for read-only reporting.
func (s *Session) State() *core.Session { return s.state }

func (s *Session) AddUtterance(u core.Utterance) {
	s.state.AddUtterance(u)
}

func (s *Session) AddSuggestion(sg core.Suggestion) {
	s.state.AddSuggestion(sg)
}

func (s *Session) Utterances() []core.Utterance {
	return append([]core.Utterance(nil), s.state.Utterances...)
}

func (s *Session) Suggestions() []core.Suggestion {
	return append([]core.Suggestion(nil), s.state.Suggestions...)
}

// End stamps the end time once; later calls are no-ops.
func (s *Session) End() {
	if s.state.EndedAt != nil {
		return
	}
	now := time.Now().UTC()
	s.state.EndedAt = &now
}

// RecentContext returns up to maxTurns most recent utterances, oldest first.
// It is the only view downstream prompting gets of the history.
func (s *Session) RecentContext(maxTurns int) []core.Utterance {
	if maxTurns <= 0 {
		return []core.Utterance{}
	}

	all := s.state.Utterances
	if len(all) > maxTurns {
		all = all[len(all)-maxTurns:]
	}
	return append([]core.Utterance(nil), all...)
}

// ToChatHistory renders RecentContext as chat messages. The local user is
// "user"; remote users and agents are both "assistant", so the model sees
// the conversation as a two-sided exchange from the local user's seat.
func (s *Session) ToChatHistory(maxTurns int, systemPrompt string) []llm.Message {
	recent := s.RecentContext(maxTurns)

	out := make([]llm.Message, 0, len(recent)+1)
	if systemPrompt != "" {
		out = append(out, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	for _, u := range recent {
		role := llm.RoleAssistant
		if u.Speaker.Role == core.RoleLocalUser {
			role = llm.RoleUser
		}
		out = append(out, llm.Message{Role: role, Content: u.Text})
	}
	return out
}
