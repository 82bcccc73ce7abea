package httpapi

import (
	"errors"
	"io"
	log "log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"voicebridge/internal/core"
	"voicebridge/internal/orchestrator"
)

const maxAudioSize = 25 << 20

// Device is one audio output as reported by /v1/devices.
type Device struct {
	Index      int     `json:"index"`
	Name       string  `json:"name"`
	Channels   int     `json:"channels"`
	SampleRate float64 `json:"sample_rate"`
	Default    bool    `json:"default"`
}

// DeviceLister wraps the portaudio device listing in production.
type DeviceLister func() ([]Device, error)

// Handler exposes one orchestrator over HTTP. mu is shared with every
// other entry point driving the same orchestrator.
type Handler struct {
	orc     *orchestrator.Orchestrator
	mu      *sync.Mutex
	devices DeviceLister
	log     *log.Logger
}

func NewHandler(orc *orchestrator.Orchestrator, mu *sync.Mutex, devices DeviceLister, logger *log.Logger) *Handler {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{orc: orc, mu: mu, devices: devices, log: logger.With("component", "http")}
}

// Router registers every route on a fresh gin engine.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLog)

	r.GET("/health", h.Health)

	v1 := r.Group("/v1")
	v1.POST("/input", h.Input)
	v1.POST("/remote", h.Remote)
	v1.POST("/say", h.Say)
	v1.GET("/session", h.Session)
	v1.GET("/devices", h.Devices)

	return r
}

type inputRequest struct {
	Text  string `json:"text" binding:"required"`
	Speak bool   `json:"speak"`
}

type suggestionsResponse struct {
	Session     string            `json:"session"`
	Suggestions []core.Suggestion `json:"suggestions"`
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"profile": h.orc.Profile().Name,
		"time":    time.Now().Unix(),
	})
}

func (h *Handler) Input(c *gin.Context) {
	var req inputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "text is required")
		return
	}

	h.mu.Lock()
	out := h.orc.HandleLocalText(c.Request.Context(), req.Text, req.Speak)
	h.mu.Unlock()

	h.suggestions(c, out)
}

// Remote takes either JSON {"text": ...} or a multipart upload with an
// "audio" file and an optional "language" field.
func (h *Handler) Remote(c *gin.Context) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		h.remoteAudio(c)
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "text is required")
		return
	}

	h.mu.Lock()
	out := h.orc.HandleRemoteText(c.Request.Context(), req.Text)
	h.mu.Unlock()

	h.suggestions(c, out)
}

func (h *Handler) remoteAudio(c *gin.Context) {
	fh, err := c.FormFile("audio")
	if err != nil {
		badRequest(c, "missing audio file")
		return
	}
	if fh.Size > maxAudioSize {
		badRequest(c, "audio file too large")
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.log.Error("Failed to open upload", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot read upload"})
		return
	}
	defer f.Close()

	clip, err := io.ReadAll(io.LimitReader(f, maxAudioSize))
	if err != nil {
		h.log.Error("Failed to read upload", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot read upload"})
		return
	}

	h.mu.Lock()
	out := h.orc.HandleRemoteAudio(c.Request.Context(), clip, c.PostForm("language"))
	h.mu.Unlock()

	h.suggestions(c, out)
}

func (h *Handler) Say(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "text is required")
		return
	}

	h.mu.Lock()
	err := h.orc.Say(c.Request.Context(), req.Text)
	h.mu.Unlock()

	switch {
	case errors.Is(err, orchestrator.ErrNoTTS):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case err != nil:
		h.log.Warn("Say failed", "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func (h *Handler) Session(c *gin.Context) {
	h.mu.Lock()
	s := h.orc.Session()
	snap := core.Session{
		ID:          s.ID(),
		StartedAt:   s.State().StartedAt,
		EndedAt:     s.State().EndedAt,
		Utterances:  s.Utterances(),
		Suggestions: s.Suggestions(),
	}
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"profile":    h.orc.Profile().Name,
		"auto_speak": h.orc.AutoSpeak(),
		"session":    snap,
	})
}

func (h *Handler) Devices(c *gin.Context) {
	if h.devices == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audio output disabled"})
		return
	}

	devs, err := h.devices()
	if err != nil {
		h.log.Warn("Failed to list devices", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"devices": devs})
}

func (h *Handler) suggestions(c *gin.Context, out []core.Suggestion) {
	if out == nil {
		out = []core.Suggestion{}
	}
	c.JSON(http.StatusOK, suggestionsResponse{Session: h.orc.Session().ID(), Suggestions: out})
}

func (h *Handler) requestLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	h.log.Debug("Request",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
