package understanding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"strings"

	"voicebridge/internal/conversation"
	"voicebridge/internal/llm"
	"voicebridge/internal/provider"
)

type IntentResult struct {
	Intent              string `json:"intent"`
	Topic               string `json:"topic"`
	Emotion             string `json:"emotion"`
	AskForClarification bool   `json:"ask_for_clarification"`
}

const (
	neutralIntent  = "statement"
	neutralEmotion = "neutral"

	intentTurns = 4
)

// DefaultIntent is the neutral result used whenever classification is
// unavailable or fails.
func DefaultIntent() IntentResult {
	return IntentResult{Intent: neutralIntent, Emotion: neutralEmotion}
}

const defaultIntentPrompt = `
You classify the latest turn of a live two-party conversation.
Do NOT converse. Do NOT answer. Output ONLY a JSON object, no markdown.

OUTPUT FORMAT:
{
  "intent": "<string>",
  "topic": "<string>",
  "emotion": "<string>",
  "ask_for_clarification": <true|false>
}

intent: one of "question", "request", "statement", "greeting", "complaint", "farewell", "other".
topic: a few words naming what the turn is about, "" if unclear.
emotion: one of "neutral", "positive", "negative", "frustrated", "confused", "excited".
ask_for_clarification: true only if a sensible reply must first ask what was meant.
`

type IntentAnalyzer struct {
	llm llm.Client
	log *log.Logger
}

// NewIntentAnalyzer accepts a nil client; Analyze then always returns DefaultIntent.
func NewIntentAnalyzer(client llm.Client, logger *log.Logger) *IntentAnalyzer {
	if logger == nil {
		logger = log.Default()
	}
	return &IntentAnalyzer{llm: client, log: logger.With("component", "intent")}
}

// Analyze never fails: anything that goes wrong yields DefaultIntent.
func (a *IntentAnalyzer) Analyze(ctx context.Context, s *conversation.Session) IntentResult {
	if a.llm == nil {
		return DefaultIntent()
	}

	profile := s.Profile()

	system := profile.Prompt("intent")
	if strings.TrimSpace(system) == "" {
		system = defaultIntentPrompt
	}

	messages := s.ToChatHistory(intentTurns, system)

	raw, err := a.llm.Structured(ctx, messages, profile.Meta("intent_model", "llm_model"), IntentResult{})
	if err != nil {
		a.log.Warn("Intent classification failed", "outcome", provider.Classify(err), "err", err)
		return DefaultIntent()
	}

	fields, err := asObject(raw)
	if err != nil {
		a.log.Warn("Intent result unusable", "outcome", provider.ProviderError, "err", err)
		return DefaultIntent()
	}

	out := intentFromFields(fields)
	a.log.Debug("Intent", "intent", out.Intent, "topic", out.Topic, "emotion", out.Emotion, "clarify", out.AskForClarification)

	return out
}

func intentFromFields(f map[string]any) IntentResult {
	out := DefaultIntent()

	if v, ok := coerceString(f["intent"]); ok && strings.TrimSpace(v) != "" {
		out.Intent = strings.TrimSpace(v)
	}
	if v, ok := coerceString(f["topic"]); ok {
		out.Topic = strings.TrimSpace(v)
	}
	if v, ok := coerceString(f["emotion"]); ok && strings.TrimSpace(v) != "" {
		out.Emotion = strings.TrimSpace(v)
	}
	if v, ok := coerceBool(f["ask_for_clarification"]); ok {
		out.AskForClarification = v
	}

	return out
}

// asObject turns whatever Structured returned into a JSON object.
func asObject(v any) (map[string]any, error) {
	switch t := v.(type) {
	case nil:
		return nil, fmt.Errorf("empty result")
	case map[string]any:
		return t, nil
	case string:
		return parseObject([]byte(t))
	case []byte:
		return parseObject(t)
	case json.RawMessage:
		return parseObject(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("re-encode %T: %w", v, err)
		}
		return parseObject(b)
	}
}

func parseObject(b []byte) (map[string]any, error) {
	b = stripFences(bytes.TrimSpace(b))

	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("unmarshal intent: %w (raw: %s)", err, b)
	}
	if out == nil {
		return nil, fmt.Errorf("intent is not an object (raw: %s)", b)
	}
	return out, nil
}

// stripFences drops a ```json ... ``` wrapper some models add despite instructions.
func stripFences(b []byte) []byte {
	if !bytes.HasPrefix(b, []byte("```")) {
		return b
	}
	b = b[3:]
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[i+1:]
	}
	b = bytes.TrimSuffix(bytes.TrimSpace(b), []byte("```"))
	return bytes.TrimSpace(b)
}

func coerceString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool, float64, int, int64, json.Number:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}

func coerceBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		return t != 0, true
	case int:
		return t != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			return true, true
		case "false", "no", "n", "0", "":
			return false, true
		}
	}
	return false, false
}
