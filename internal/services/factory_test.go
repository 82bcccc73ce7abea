package services

import (
	"errors"
	"testing"
	"time"

	"voicebridge/internal/asr"
	"voicebridge/internal/config"
	"voicebridge/internal/core"
	"voicebridge/internal/llm"
	"voicebridge/internal/tts"
)

func settings(openaiKey, elevenKey string) config.Settings {
	return config.Settings{
		OpenAIKey:      openaiKey,
		ElevenLabsKey:  elevenKey,
		LLMModel:       config.DefaultLLMModel,
		TTSModel:       config.DefaultTTSModel,
		ASRModel:       config.DefaultASRModel,
		RequestTimeout: 5 * time.Second,
	}
}

func profile(backend string) *core.Profile {
	return &core.Profile{Name: "p", TTSBackend: backend, ReplyStrategy: core.DefaultReplyStrategy()}
}

func TestBuildWithoutCredentials(t *testing.T) {
	set, err := Build(settings("", ""), profile(BackendOpenAI), nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if set.LLM != nil || set.ASR != nil || set.TTS != nil {
		t.Errorf("Expected no capabilities, got %+v", set.Services)
	}
	if !errors.Is(set.Require(), ErrUnusable) {
		t.Error("Expected ErrUnusable without an LLM")
	}
}

func TestBuildOpenAI(t *testing.T) {
	s := settings("sk-test", "")
	s.TTSVoice = "nova"

	set, err := Build(s, profile("gpt-4o-mini-tts"), nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, ok := set.LLM.(*llm.OpenAI); !ok {
		t.Errorf("Expected OpenAI LLM, got %T", set.LLM)
	}
	if _, ok := set.ASR.(*asr.OpenAI); !ok {
		t.Errorf("Expected OpenAI ASR, got %T", set.ASR)
	}
	if _, ok := set.TTS.(*tts.OpenAI); !ok {
		t.Errorf("Expected OpenAI TTS, got %T", set.TTS)
	}
	if set.VoiceOverride != "nova" {
		t.Errorf("Expected voice override, got %q", set.VoiceOverride)
	}
	if err := set.Require(); err != nil {
		t.Errorf("unexpected Require error: %v", err)
	}
}

func TestBuildTTSBackendSelection(t *testing.T) {
	tests := []struct {
		name    string
		openai  string
		eleven  string
		backend string
		want    string
	}{
		{"elevenlabs keyed", "sk", "xi", BackendElevenLabs, "*tts.ElevenLabs"},
		{"elevenlabs without key falls back", "sk", "", BackendElevenLabs, "*tts.OpenAI"},
		{"elevenlabs only", "", "xi", "ElevenLabs", "*tts.ElevenLabs"},
		{"disabled", "sk", "xi", BackendNone, "<nil>"},
		{"unknown backend with openai", "sk", "", "espeak", "*tts.OpenAI"},
		{"nothing keyed", "", "", BackendElevenLabs, "<nil>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := Build(settings(tt.openai, tt.eleven), profile(tt.backend), nil, nil)
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			if got := typeName(set.TTS); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	set, err := Build(settings("sk", ""), profile(BackendNone), nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	got := set.Describe()
	want := []string{"llm: llm.OpenAI", "asr: asr.OpenAI", "tts: none"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func typeName(v tts.Synthesizer) string {
	switch v.(type) {
	case nil:
		return "<nil>"
	case *tts.ElevenLabs:
		return "*tts.ElevenLabs"
	case *tts.OpenAI:
		return "*tts.OpenAI"
	}
	return "?"
}
