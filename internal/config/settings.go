package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrConfig = errors.New("config")

const (
	DefaultLLMModel       = "gpt-4o-mini"
	DefaultTTSModel       = "gpt-4o-mini-tts"
	DefaultASRModel       = "whisper-1"
	DefaultRequestTimeout = 60 * time.Second

	placeholderPrefix = "SET_ME"
)

type Settings struct {
	OpenAIKey     string
	OpenAIBaseURL string
	ElevenLabsKey string

	LLMModel string
	TTSModel string
	ASRModel string
	TTSVoice string

	OutputDevice string
	WhisperModel string
	Proxy        string
	BusURL       string
	Profile      string

	RequestTimeout time.Duration
}

// IsPlaceholder reports values shipped in example env files.
func IsPlaceholder(v string) bool {
	return strings.HasPrefix(strings.TrimSpace(v), placeholderPrefix)
}

// LoadSettings reads envFile (if it exists) and overlays the process
// environment on top of it.
func LoadSettings(envFile string) (Settings, error) {
	return loadSettings(envFile, os.LookupEnv)
}

func loadSettings(envFile string, lookup func(string) (string, bool)) (Settings, error) {
	file := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			file = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Settings{}, fmt.Errorf("%w: read %s: %v", ErrConfig, envFile, err)
		}
	}

	get := func(key, def string) string {
		v, ok := lookup(key)
		if !ok {
			v = file[key]
		}
		v = strings.TrimSpace(v)
		if v == "" || IsPlaceholder(v) {
			return def
		}
		return v
	}

	s := Settings{
		OpenAIKey:     get("OPENAI_API_KEY", ""),
		OpenAIBaseURL: get("OPENAI_BASE_URL", ""),
		ElevenLabsKey: get("ELEVENLABS_API_KEY", ""),
		LLMModel:      get("VOICEBRIDGE_LLM_MODEL", DefaultLLMModel),
		TTSModel:      get("VOICEBRIDGE_TTS_MODEL", DefaultTTSModel),
		ASRModel:      get("VOICEBRIDGE_ASR_MODEL", DefaultASRModel),
		TTSVoice:      get("VOICEBRIDGE_TTS_VOICE", ""),
		OutputDevice:  get("VOICEBRIDGE_OUTPUT_DEVICE", ""),
		WhisperModel:  get("VOICEBRIDGE_WHISPER_MODEL", ""),
		Proxy:         get("VOICEBRIDGE_PROXY", ""),
		BusURL:        get("VOICEBRIDGE_BUS_URL", ""),
		Profile:       get("VOICEBRIDGE_PROFILE", ""),
	}

	s.RequestTimeout = DefaultRequestTimeout
	if raw := get("VOICEBRIDGE_REQUEST_TIMEOUT", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return Settings{}, fmt.Errorf("%w: VOICEBRIDGE_REQUEST_TIMEOUT %q is not a positive duration", ErrConfig, raw)
		}
		s.RequestTimeout = d
	}

	return s, nil
}
