package understanding

import (
	"context"

	"voicebridge/internal/core"
	"voicebridge/internal/llm"
)

type fakeLLM struct {
	completion    string
	completeErr   error
	structured    any
	structuredErr error

	completeCalls   [][]llm.Message
	structuredCalls [][]llm.Message
	models          []string
}

func (f *fakeLLM) Complete(_ context.Context, messages []llm.Message, model string) (string, error) {
	f.completeCalls = append(f.completeCalls, messages)
	f.models = append(f.models, model)
	return f.completion, f.completeErr
}

func (f *fakeLLM) Structured(_ context.Context, messages []llm.Message, model string, _ any) (any, error) {
	f.structuredCalls = append(f.structuredCalls, messages)
	f.models = append(f.models, model)
	return f.structured, f.structuredErr
}

func profileWith(budget int, prompts map[string]string) *core.Profile {
	rs := core.DefaultReplyStrategy()
	rs.MaxSuggestionLength = budget
	return &core.Profile{
		Name:          "Teaching",
		DefaultVoice:  "alloy",
		OutputDevice:  "default",
		ReplyStrategy: rs,
		Prompts:       prompts,
		Metadata:      map[string]string{},
	}
}

func say(role core.ParticipantRole, name, text string) core.Utterance {
	return core.Utterance{
		Speaker: core.Participant{ID: name, Role: role, DisplayName: name},
		Text:    text,
		Source:  core.SourceKeyboard,
	}
}
