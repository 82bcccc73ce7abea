package asr

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"

	"voicebridge/internal/core"
	"voicebridge/internal/provider"
)

const DefaultOpenAIModel = "whisper-1"

// OpenAI transcribes through the hosted audio/transcriptions endpoint.
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

func (o *OpenAI) Transcribe(ctx context.Context, audio []byte, languageHint string) (core.Utterance, error) {
	name, mime := uploadName(audio)
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), name, mime),
		Model: openai.AudioModel(o.model),
	}
	if languageHint != "" {
		params.Language = param.NewOpt(languageHint)
	}

	res, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return core.Utterance{}, provider.Wrap("openai", "transcribe", err)
	}

	return RemoteUtterance(strings.TrimSpace(res.Text), languageHint), nil
}

// uploadName picks the file name the endpoint uses to detect the container.
func uploadName(audio []byte) (string, string) {
	switch http.DetectContentType(audio) {
	case "audio/mpeg":
		return "audio.mp3", "audio/mpeg"
	case "application/ogg":
		return "audio.ogg", "audio/ogg"
	}
	if len(audio) > 1 && audio[0] == 0xFF && audio[1]&0xE0 == 0xE0 {
		return "audio.mp3", "audio/mpeg"
	}
	return "audio.wav", "audio/wav"
}
