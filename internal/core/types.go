package core

import "time"

type ParticipantRole string

const (
	RoleLocalUser  ParticipantRole = "local_user"
	RoleRemoteUser ParticipantRole = "remote_user"
	RoleAgent      ParticipantRole = "agent"
)

type UtteranceSource string

const (
	SourceMic         UtteranceSource = "mic"
	SourceSystemAudio UtteranceSource = "system_audio"
	SourceKeyboard    UtteranceSource = "keyboard"
	SourceAgent       UtteranceSource = "agent"
)

type Participant struct {
	ID          string          `json:"id"`
	Role        ParticipantRole `json:"role"`
	DisplayName string          `json:"display_name"`
	Language    string          `json:"language,omitempty"`
}

// LocalParticipant is the operator on this side of the conversation.
func LocalParticipant() Participant {
	return Participant{ID: "local", Role: RoleLocalUser, DisplayName: "You"}
}

// RemoteParticipant is the other side, as heard through ASR or typed in by a relay.
func RemoteParticipant() Participant {
	return Participant{ID: "remote", Role: RoleRemoteUser, DisplayName: "Remote"}
}

type Utterance struct {
	Speaker   Participant     `json:"speaker"`
	Text      string          `json:"text"`
	Language  string          `json:"language,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Source    UtteranceSource `json:"source"`
}

type Suggestion struct {
	Text       string   `json:"text"`
	Style      string   `json:"style,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	AutoSend   bool     `json:"auto_send"`
}

type ReplyStrategy struct {
	AutoSuggest         bool `json:"auto_suggest" yaml:"auto_suggest"`
	AutoSpeak           bool `json:"auto_speak" yaml:"auto_speak"`
	MaxSuggestionLength int  `json:"max_suggestion_length" yaml:"max_suggestion_length"`
	AllowAgentMode      bool `json:"allow_agent_mode" yaml:"allow_agent_mode"`
}

const DefaultMaxSuggestionLength = 120

func DefaultReplyStrategy() ReplyStrategy {
	return ReplyStrategy{
		AutoSuggest:         true,
		MaxSuggestionLength: DefaultMaxSuggestionLength,
	}
}

// Profile is loaded once and shared read-only by every session bound to it.
type Profile struct {
	Name          string            `json:"name"`
	InputMode     string            `json:"input_mode"`
	TTSBackend    string            `json:"tts_backend"`
	DefaultVoice  string            `json:"default_voice"`
	OutputDevice  string            `json:"output_device"`
	ReplyStrategy ReplyStrategy     `json:"reply_strategy"`
	Prompts       map[string]string `json:"prompts,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Prompt returns the named prompt template, or "" if the profile has none.
func (p *Profile) Prompt(name string) string {
	if p == nil || p.Prompts == nil {
		return ""
	}
	return p.Prompts[name]
}

// Meta returns the first non-empty metadata value among keys.
func (p *Profile) Meta(keys ...string) string {
	if p == nil {
		return ""
	}
	for _, k := range keys {
		if v := p.Metadata[k]; v != "" {
			return v
		}
	}
	return ""
}

type Session struct {
	ID          string            `json:"id"`
	Profile     *Profile          `json:"-"`
	StartedAt   time.Time         `json:"started_at"`
	EndedAt     *time.Time        `json:"ended_at,omitempty"`
	Utterances  []Utterance       `json:"utterances"`
	Suggestions []Suggestion      `json:"suggestions"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (s *Session) AddUtterance(u Utterance) {
	s.Utterances = append(s.Utterances, u)
}

func (s *Session) AddSuggestion(sg Suggestion) {
	s.Suggestions = append(s.Suggestions, sg)
}
