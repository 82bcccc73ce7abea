package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"

	"voicebridge/internal/provider"
)

const (
	providerName = "openai"

	DefaultModel = "gpt-4o-mini"

	// JSON mode is rejected unless a message mentions JSON.
	jsonReminder = "Respond with a single JSON object."
)

type OpenAI struct {
	client       openai.Client
	defaultModel string
	log          *log.Logger
}

func NewOpenAI(client openai.Client, defaultModel string, logger *log.Logger) *OpenAI {
	if strings.TrimSpace(defaultModel) == "" {
		defaultModel = DefaultModel
	}
	if logger == nil {
		logger = log.Default()
	}
	return &OpenAI{client: client, defaultModel: defaultModel, log: logger.With("component", "llm")}
}

func (o *OpenAI) Complete(ctx context.Context, messages []Message, model string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: toParams(messages),
		Model:    o.model(model),
	})
	if err != nil {
		return "", wrapErr("complete", err)
	}

	if len(resp.Choices) == 0 {
		return "", provider.Wrap(providerName, "complete", errors.New("no choices in response"))
	}

	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) Structured(ctx context.Context, messages []Message, model string, _ any) (any, error) {
	if !mentionsJSON(messages) {
		messages = append(messages[:len(messages):len(messages)], Message{Role: RoleSystem, Content: jsonReminder})
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: toParams(messages),
		Model:    o.model(model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, wrapErr("structured", err)
	}

	if len(resp.Choices) == 0 {
		return nil, provider.Wrap(providerName, "structured", errors.New("no choices in response"))
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		content = "{}"
	}

	o.log.Debug("Structured response", "data", content)

	var out any
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, provider.Wrap(providerName, "structured", fmt.Errorf("unmarshal: %w (raw: %s)", err, content))
	}

	return out, nil
}

func (o *OpenAI) model(hint string) openai.ChatModel {
	if m := strings.TrimSpace(hint); m != "" {
		return openai.ChatModel(m)
	}
	return openai.ChatModel(o.defaultModel)
}

func mentionsJSON(messages []Message) bool {
	for _, m := range messages {
		if strings.Contains(strings.ToLower(m.Content), "json") {
			return true
		}
	}
	return false
}

func toParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func wrapErr(op string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return provider.WrapStatus(providerName, op, apiErr.StatusCode, err)
	}
	return provider.Wrap(providerName, op, err)
}
