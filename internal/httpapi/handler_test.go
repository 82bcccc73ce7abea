package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"voicebridge/internal/core"
	"voicebridge/internal/llm"
	"voicebridge/internal/orchestrator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubLLM struct{ reply string }

func (s stubLLM) Complete(context.Context, []llm.Message, string) (string, error) {
	return s.reply, nil
}

func (s stubLLM) Structured(context.Context, []llm.Message, string, any) (any, error) {
	return map[string]any{"intent": "question"}, nil
}

type stubASR struct{}

func (stubASR) Transcribe(context.Context, []byte, string) (core.Utterance, error) {
	return core.Utterance{Speaker: core.RemoteParticipant(), Text: "Is it ready?", Source: core.SourceMic}, nil
}

func newRouter(svc orchestrator.Services, devices DeviceLister) (*gin.Engine, *orchestrator.Orchestrator) {
	p := &core.Profile{Name: "meeting", DefaultVoice: "alloy", OutputDevice: "default", ReplyStrategy: core.DefaultReplyStrategy()}
	o := orchestrator.New(p, svc)
	return NewHandler(o, nil, devices, nil).Router(), o
}

func do(r http.Handler, method, path, contentType string, body *bytes.Buffer) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInput(t *testing.T) {
	r, o := newRouter(orchestrator.Services{LLM: stubLLM{reply: "Yes\nNot yet"}}, nil)

	w := do(r, http.MethodPost, "/v1/input", "application/json", bytes.NewBufferString(`{"text":"is it done?"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body)
	}

	var resp suggestionsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Session != o.Session().ID() || len(resp.Suggestions) != 2 || resp.Suggestions[0].Text != "Yes" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestInputValidation(t *testing.T) {
	r, _ := newRouter(orchestrator.Services{}, nil)

	w := do(r, http.MethodPost, "/v1/input", "application/json", bytes.NewBufferString(`{"speak":true}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestInputWithoutLLMReturnsEmptyList(t *testing.T) {
	r, _ := newRouter(orchestrator.Services{}, nil)

	w := do(r, http.MethodPost, "/v1/input", "application/json", bytes.NewBufferString(`{"text":"hello"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"suggestions":[]`) {
		t.Errorf("Expected empty list, got %s", w.Body)
	}
}

func TestRemoteAudioUpload(t *testing.T) {
	r, o := newRouter(orchestrator.Services{LLM: stubLLM{reply: "Almost."}, ASR: stubASR{}}, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("audio", "clip.wav")
	fw.Write([]byte("RIFF....WAVE"))
	mw.WriteField("language", "en")
	mw.Close()

	w := do(r, http.MethodPost, "/v1/remote", mw.FormDataContentType(), &body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body)
	}

	utts := o.Session().Utterances()
	if len(utts) != 1 || utts[0].Text != "Is it ready?" || utts[0].Speaker.Role != core.RoleRemoteUser {
		t.Errorf("unexpected utterances %+v", utts)
	}
}

func TestSayWithoutTTS(t *testing.T) {
	r, _ := newRouter(orchestrator.Services{}, nil)

	w := do(r, http.MethodPost, "/v1/say", "application/json", bytes.NewBufferString(`{"text":"one moment"}`))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}
}

func TestSessionSnapshot(t *testing.T) {
	r, _ := newRouter(orchestrator.Services{}, nil)
	do(r, http.MethodPost, "/v1/remote", "application/json", bytes.NewBufferString(`{"text":"hi there"}`))

	w := do(r, http.MethodGet, "/v1/session", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Profile string       `json:"profile"`
		Session core.Session `json:"session"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Profile != "meeting" || len(resp.Session.Utterances) != 1 || resp.Session.Utterances[0].Text != "hi there" {
		t.Errorf("unexpected snapshot %+v", resp)
	}
}

func TestDevices(t *testing.T) {
	r, _ := newRouter(orchestrator.Services{}, func() ([]Device, error) {
		return []Device{{Index: 3, Name: "BlackHole 2ch", Channels: 2}}, nil
	})

	w := do(r, http.MethodGet, "/v1/devices", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "BlackHole 2ch") {
		t.Errorf("unexpected response %d %s", w.Code, w.Body)
	}

	r, _ = newRouter(orchestrator.Services{}, func() ([]Device, error) {
		return nil, errors.New("portaudio not initialized")
	})
	if w := do(r, http.MethodGet, "/v1/devices", "", nil); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}

	r, _ = newRouter(orchestrator.Services{}, nil)
	if w := do(r, http.MethodGet, "/v1/devices", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}
}
