package tts

import (
	"context"
	"fmt"
	"io"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"

	"voicebridge/internal/provider"
)

const DefaultOpenAIModel = "gpt-4o-mini-tts"

type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(client openai.Client, model string) *OpenAI {
	if strings.TrimSpace(model) == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{client: client, model: model}
}

// Synthesize returns mp3 audio. A non-empty style is passed as speaking
// instructions, which tts-1 models ignore.
func (o *OpenAI) Synthesize(ctx context.Context, text, voiceID, style string) ([]byte, error) {
	params := openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(o.model),
		Voice:          openai.AudioSpeechNewParamsVoice(voiceID),
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	}
	if style != "" {
		params.Instructions = param.NewOpt(style)
	}

	resp, err := o.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, provider.Wrap("openai", "synthesize", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.Wrap("openai", "synthesize", fmt.Errorf("read body: %w", err))
	}

	return audio, nil
}
