package services

import (
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"voicebridge/internal/asr"
	"voicebridge/internal/asr/whisperlocal"
	"voicebridge/internal/config"
	"voicebridge/internal/core"
	"voicebridge/internal/llm"
	"voicebridge/internal/orchestrator"
	"voicebridge/internal/tts"
	"voicebridge/pkg/stt"
)

const (
	BackendOpenAI     = "openai"
	BackendElevenLabs = "elevenlabs"
	BackendNone       = "none"
)

// Set is the capabilities built for one profile plus whatever owns native
// resources.
type Set struct {
	orchestrator.Services

	whisper *stt.Transcriber
}

func (s *Set) Close() error {
	if s.whisper != nil {
		return s.whisper.Close()
	}
	return nil
}

// Describe lists the configured capabilities, one "name: backend" entry each.
func (s *Set) Describe() []string {
	name := func(v any) string {
		if v == nil {
			return "none"
		}
		return strings.TrimPrefix(fmt.Sprintf("%T", v), "*")
	}

	out := []string{
		"llm: " + name(s.LLM),
		"asr: " + name(s.ASR),
		"tts: " + name(s.TTS),
	}
	if s.VoiceOverride != "" {
		out = append(out, "voice: "+s.VoiceOverride)
	}
	return out
}

// Build never fails on missing credentials: the capability is left nil and
// the reason logged. Only a whisper model that was asked for but cannot be
// loaded is an error.
func Build(settings config.Settings, profile *core.Profile, httpClient *http.Client, logger *log.Logger) (*Set, error) {
	if logger == nil {
		logger = log.Default()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	set := &Set{}
	set.VoiceOverride = settings.TTSVoice

	var (
		client    openai.Client
		hasOpenAI = settings.OpenAIKey != ""
	)
	if hasOpenAI {
		opts := []option.RequestOption{
			option.WithAPIKey(settings.OpenAIKey),
			option.WithHTTPClient(httpClient),
			option.WithRequestTimeout(settings.RequestTimeout),
		}
		if settings.OpenAIBaseURL != "" {
			opts = append(opts, option.WithBaseURL(settings.OpenAIBaseURL))
		}
		client = openai.NewClient(opts...)

		set.LLM = llm.NewOpenAI(client, settings.LLMModel, logger)
		set.ASR = asr.NewOpenAI(client, settings.ASRModel)
	} else {
		logger.Warn("OPENAI_API_KEY not set, running without LLM and hosted ASR")
	}

	if settings.WhisperModel != "" {
		tr, err := stt.NewTranscriber(settings.WhisperModel)
		if err != nil {
			return nil, fmt.Errorf("load whisper model %s: %w", settings.WhisperModel, err)
		}
		set.whisper = tr
		set.ASR = whisperlocal.New(tr, stt.Options{Language: "auto"})
		logger.Debug("Loaded local whisper", "model", settings.WhisperModel)
	}

	backend := ""
	if profile != nil {
		backend = strings.ToLower(strings.TrimSpace(profile.TTSBackend))
	}

	switch {
	case backend == BackendNone:
	case backend == BackendElevenLabs && settings.ElevenLabsKey != "":
		set.TTS = tts.NewElevenLabs(tts.ElevenLabsConfig{
			APIKey:  settings.ElevenLabsKey,
			Timeout: settings.RequestTimeout,
		}, httpClient)
	case hasOpenAI:
		if backend == BackendElevenLabs {
			logger.Warn("ELEVENLABS_API_KEY not set, falling back to OpenAI speech")
		}
		set.TTS = tts.NewOpenAI(client, settings.TTSModel)
	default:
		logger.Warn("No TTS credentials, speech disabled", "backend", backend)
	}

	return set, nil
}

// ErrUnusable is returned by Require when a set cannot produce suggestions.
var ErrUnusable = errors.New("no LLM configured")

func (s *Set) Require() error {
	if s.LLM == nil {
		return ErrUnusable
	}
	return nil
}
