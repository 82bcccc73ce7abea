package understanding

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"voicebridge/internal/conversation"
	"voicebridge/internal/core"
	"voicebridge/internal/llm"
)

func TestGenerateWithoutLLM(t *testing.T) {
	e := NewSuggestionEngine(nil, nil)
	got := e.Generate(context.Background(), conversation.NewSession(profileWith(120, nil)), DefaultIntent())

	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil list, got %#v", got)
	}
}

func TestGenerateEmptyResponse(t *testing.T) {
	for _, resp := range []string{"", "   ", "\n\n", "\r\n \t", "-\n•\n-", "   - \n"} {
		e := NewSuggestionEngine(&fakeLLM{completion: resp}, nil)
		got := e.Generate(context.Background(), conversation.NewSession(profileWith(120, nil)), DefaultIntent())
		if len(got) != 0 {
			t.Errorf("response %q: expected no suggestions, got %+v", resp, got)
		}
	}
}

func TestGenerateLLMError(t *testing.T) {
	e := NewSuggestionEngine(&fakeLLM{completeErr: errors.New("timeout")}, nil)
	got := e.Generate(context.Background(), conversation.NewSession(profileWith(120, nil)), DefaultIntent())

	if len(got) != 0 {
		t.Errorf("Expected no suggestions, got %+v", got)
	}
}

func TestGenerateParsesLines(t *testing.T) {
	s := conversation.NewSession(profileWith(120, nil))
	s.AddUtterance(say(core.RoleLocalUser, "You", "hello"))

	e := NewSuggestionEngine(&fakeLLM{completion: "Hi there\nHow can I help?"}, nil)
	got := e.Generate(context.Background(), s, DefaultIntent())

	if len(got) != 2 {
		t.Fatalf("Expected 2 suggestions, got %d", len(got))
	}
	if got[0].Text != "Hi there" || got[1].Text != "How can I help?" {
		t.Errorf("unexpected suggestions %+v", got)
	}
	for _, sg := range got {
		if sg.AutoSend {
			t.Error("suggestions must not be auto-sent")
		}
	}
}

func TestGenerateBoundsCountAndLength(t *testing.T) {
	long := strings.Repeat("word ", 60)
	responses := []string{
		"- one\n- two\n- three\n- four",
		long + "\n" + long + "\n" + long,
		"• " + strings.Repeat("x", 500),
		"a\r\nb\r\nc",
	}

	for _, budget := range []int{1, 5, 20, 120} {
		for _, resp := range responses {
			e := NewSuggestionEngine(&fakeLLM{completion: resp}, nil)
			got := e.Generate(context.Background(), conversation.NewSession(profileWith(budget, nil)), DefaultIntent())

			if len(got) > SuggestionCount {
				t.Errorf("budget=%d: expected at most %d suggestions, got %d", budget, SuggestionCount, len(got))
			}
			for _, sg := range got {
				if n := utf8.RuneCountInString(sg.Text); n > budget {
					t.Errorf("budget=%d: suggestion %q has %d runes", budget, sg.Text, n)
				}
			}
		}
	}
}

func TestGenerateMessages(t *testing.T) {
	fake := &fakeLLM{completion: "ok"}
	p := profileWith(80, map[string]string{
		"suggestion": "Profile {profile_name}, intent {intent}/{topic}/{emotion}, {num_suggestions} x {max_length}\n{transcript}",
	})
	p.Metadata["llm_model"] = "gpt-4.1-mini"

	s := conversation.NewSession(p)
	for i := 0; i < 10; i++ {
		s.AddUtterance(say(core.RoleRemoteUser, "Remote", "r"))
	}
	s.AddUtterance(say(core.RoleLocalUser, "You", "last"))

	intent := IntentResult{Intent: "question", Topic: "pricing", Emotion: "neutral"}
	NewSuggestionEngine(fake, nil).Generate(context.Background(), s, intent)

	if len(fake.completeCalls) != 1 {
		t.Fatalf("Expected 1 completion call, got %d", len(fake.completeCalls))
	}
	msgs := fake.completeCalls[0]
	if len(msgs) != 2+suggestionTurns {
		t.Fatalf("Expected %d messages, got %d", 2+suggestionTurns, len(msgs))
	}

	if msgs[0].Role != llm.RoleSystem || !strings.Contains(msgs[0].Content, "exactly 2") || !strings.Contains(msgs[0].Content, "80 characters") {
		t.Errorf("unexpected system instruction %q", msgs[0].Content)
	}
	if msgs[1].Role != llm.RoleSystem {
		t.Errorf("Expected rendered template as system message, got %s", msgs[1].Role)
	}
	if !strings.HasPrefix(msgs[1].Content, "Profile Teaching, intent question/pricing/neutral, 2 x 80\nRemote: r") {
		t.Errorf("unexpected rendered template %q", msgs[1].Content)
	}
	if !strings.HasSuffix(msgs[1].Content, "You: last") {
		t.Errorf("transcript must end with the latest turn, got %q", msgs[1].Content)
	}
	if last := msgs[len(msgs)-1]; last.Role != llm.RoleUser || last.Content != "last" {
		t.Errorf("unexpected last message %+v", last)
	}
	if fake.models[0] != "gpt-4.1-mini" {
		t.Errorf("Expected model hint, got %q", fake.models[0])
	}
}

func TestGenerateTemplateFallback(t *testing.T) {
	fake := &fakeLLM{completion: "ok"}
	raw := "Use {unknown} and {intent}"
	p := profileWith(80, map[string]string{"suggestion": raw})

	NewSuggestionEngine(fake, nil).Generate(context.Background(), conversation.NewSession(p), DefaultIntent())

	if got := fake.completeCalls[0][1].Content; got != raw {
		t.Errorf("Expected raw template, got %q", got)
	}
}

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"bullets", "- Sure thing\n• Of course", []string{"Sure thing", "Of course"}},
		{"blank lines", "\n\n  First  \n\n Second \n", []string{"First", "Second"}},
		{"single", "Sure, I can help.", []string{"Sure, I can help."}},
		{"cap", "a\nb\nc", []string{"a", "b"}},
		{"empty", "", nil},
		{"markers only", "-\n•\n-", nil},
		{"lone dash", "   - \n", nil},
		{"stacked markers", "- •\n-  Sounds good", []string{"Sounds good"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSuggestions(tt.text, SuggestionCount, 120)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d suggestions, got %+v", len(tt.want), got)
			}
			for i := range got {
				if got[i].Text != tt.want[i] {
					t.Errorf("%d: expected %q, got %q", i, tt.want[i], got[i].Text)
				}
			}
		})
	}
}

func TestShorten(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"the quick brown fox", 12, "the quick…"},
		{"the   quick\tbrown", 100, "the quick brown"},
		{"supercalifragilistic", 6, "super…"},
		{"héllo wörld again", 12, "héllo wörld…"},
		{"anything", 1, "…"},
		{"unbounded text", 0, "unbounded text"},
	}

	for _, tt := range tests {
		got := Shorten(tt.text, tt.width)
		if got != tt.want {
			t.Errorf("Shorten(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
		}
		if tt.width > 0 && utf8.RuneCountInString(got) > tt.width {
			t.Errorf("Shorten(%q, %d) exceeds width", tt.text, tt.width)
		}
	}
}

func TestTranscript(t *testing.T) {
	got := Transcript([]core.Utterance{
		say(core.RoleRemoteUser, "Remote", "hi"),
		{Speaker: core.Participant{Role: core.RoleAgent}, Text: "bot"},
	})
	if got != "Remote: hi\nagent: bot" {
		t.Errorf("unexpected transcript %q", got)
	}
}
