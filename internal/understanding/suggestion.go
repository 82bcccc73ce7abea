package understanding

import (
	"context"
	"fmt"
	log "log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"voicebridge/internal/conversation"
	"voicebridge/internal/core"
	"voicebridge/internal/llm"
	"voicebridge/internal/provider"
)

const (
	// SuggestionCount is how many candidates one Generate call returns at most.
	SuggestionCount = 2

	suggestionTurns = 8

	ellipsis = "…"
)

type SuggestionEngine struct {
	llm llm.Client
	log *log.Logger
}

// NewSuggestionEngine accepts a nil client; Generate then returns no suggestions.
func NewSuggestionEngine(client llm.Client, logger *log.Logger) *SuggestionEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &SuggestionEngine{llm: client, log: logger.With("component", "suggestion")}
}

// Generate returns at most SuggestionCount replies for the local user, each
// within the profile's character budget. It never fails; an empty result
// means nothing could be suggested.
func (e *SuggestionEngine) Generate(ctx context.Context, s *conversation.Session, intent IntentResult) []core.Suggestion {
	if e.llm == nil {
		return []core.Suggestion{}
	}

	profile := s.Profile()
	budget := profile.ReplyStrategy.MaxSuggestionLength

	messages := []llm.Message{{Role: llm.RoleSystem, Content: systemInstruction(SuggestionCount, budget)}}
	if rendered := e.renderProfileTemplate(s, intent); rendered != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: rendered})
	}
	messages = append(messages, s.ToChatHistory(suggestionTurns, "")...)

	text, err := e.llm.Complete(ctx, messages, profile.Meta("llm_model"))
	if err != nil {
		e.log.Warn("Suggestion generation failed", "outcome", provider.Classify(err), "err", err)
		return []core.Suggestion{}
	}

	return ParseSuggestions(text, SuggestionCount, budget)
}

func systemInstruction(n, budget int) string {
	return fmt.Sprintf(
		"You suggest what the user could say next in a live conversation. "+
			"Reply with exactly %d alternative replies, one per line, without numbering or commentary. "+
			"Each reply must be at most %d characters.",
		n, budget,
	)
}

func (e *SuggestionEngine) renderProfileTemplate(s *conversation.Session, intent IntentResult) string {
	profile := s.Profile()

	tmpl := profile.Prompt("suggestion")
	if strings.TrimSpace(tmpl) == "" {
		return ""
	}

	vars := map[string]string{
		VarProfileName:    profile.Name,
		VarTranscript:     Transcript(s.RecentContext(suggestionTurns)),
		VarMaxLength:      strconv.Itoa(profile.ReplyStrategy.MaxSuggestionLength),
		VarNumSuggestions: strconv.Itoa(SuggestionCount),
		VarIntent:         intent.Intent,
		VarTopic:          intent.Topic,
		VarEmotion:        intent.Emotion,
	}

	out, err := RenderTemplate(tmpl, vars)
	if err != nil {
		e.log.Warn("Suggestion template not rendered, using it verbatim", "profile", profile.Name, "err", err)
		return tmpl
	}
	return out
}

// Transcript flattens utterances into "Speaker: text" lines.
func Transcript(utts []core.Utterance) string {
	lines := make([]string, 0, len(utts))
	for _, u := range utts {
		name := u.Speaker.DisplayName
		if name == "" {
			name = string(u.Speaker.Role)
		}
		lines = append(lines, name+": "+u.Text)
	}
	return strings.Join(lines, "\n")
}

const bulletMarkers = "-• \t"

// ParseSuggestions splits a completion into at most n candidates, one per
// line, with bullet markers removed and each shortened to budget runes.
func ParseSuggestions(text string, n, budget int) []core.Suggestion {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		// A reply made only of markers and blanks yields nothing.
		line = strings.TrimSpace(strings.TrimLeft(line, bulletMarkers))
		if line != "" {
			lines = append(lines, line)
		}
	}

	out := make([]core.Suggestion, 0, n)
	for _, line := range lines {
		if len(out) == n {
			break
		}
		short := Shorten(line, budget)
		if short == "" {
			continue
		}
		out = append(out, core.Suggestion{Text: short, AutoSend: false})
	}
	return out
}

// Shorten collapses whitespace and, when the text exceeds width runes, cuts
// it at a word boundary and appends a single ellipsis so the result is at
// most width runes. A non-positive width disables shortening.
func Shorten(text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	if width <= 0 || utf8.RuneCountInString(text) <= width {
		return text
	}

	room := width - utf8.RuneCountInString(ellipsis)
	if room <= 0 {
		return ellipsis
	}

	var (
		kept []string
		used int
	)
	for _, w := range strings.Fields(text) {
		wl := utf8.RuneCountInString(w)
		need := wl
		if len(kept) > 0 {
			need++
		}
		if used+need > room {
			break
		}
		kept = append(kept, w)
		used += need
	}

	if len(kept) == 0 {
		// first word alone is too long: hard cut it
		r := []rune(text)
		return string(r[:room]) + ellipsis
	}
	return strings.Join(kept, " ") + ellipsis
}
