package orchestrator

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"voicebridge/internal/asr"
	"voicebridge/internal/conversation"
	"voicebridge/internal/core"
	"voicebridge/internal/llm"
	"voicebridge/internal/logging"
	"voicebridge/internal/provider"
	"voicebridge/internal/tts"
	"voicebridge/internal/understanding"
)

var ErrNoTTS = errors.New("no tts backend configured")

// AudioOutput plays an encoded clip on a named output device.
type AudioOutput interface {
	PlayToDevice(ctx context.Context, deviceID string, audio []byte) error
}

// Services are the capabilities an orchestrator may use. Any of them can be
// nil; the pipeline degrades instead of failing.
type Services struct {
	ASR           asr.Transcriber
	LLM           llm.Client
	TTS           tts.Synthesizer
	VoiceOverride string
}

type Option func(*Orchestrator)

func WithOutput(out AudioOutput) Option {
	return func(o *Orchestrator) { o.output = out }
}

func WithLogger(logger *log.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.log = logger
		}
	}
}

func WithSink(sink Sink) Option {
	return func(o *Orchestrator) { o.sink = sink }
}

// WithAutoSpeak overrides the profile's auto_speak for this session only.
func WithAutoSpeak(on bool) Option {
	return func(o *Orchestrator) { o.autoSpeak = &on }
}

// WithVoiceOverride takes precedence over Services.VoiceOverride.
func WithVoiceOverride(voice string) Option {
	return func(o *Orchestrator) { o.voice = voice }
}

// Orchestrator drives one session. Calls must not overlap: the session is
// not locked.
type Orchestrator struct {
	session  *conversation.Session
	services Services
	intent   *understanding.IntentAnalyzer
	suggest  *understanding.SuggestionEngine

	output    AudioOutput
	sink      Sink
	log       *log.Logger
	autoSpeak *bool
	voice     string
	local     core.Participant
}

func New(profile *core.Profile, services Services, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		services: services,
		log:      log.Default(),
		voice:    services.VoiceOverride,
		local:    core.LocalParticipant(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if profile == nil {
		profile = &core.Profile{Name: "default", ReplyStrategy: core.DefaultReplyStrategy()}
	}

	o.session = conversation.NewSession(profile)
	o.log = o.log.With("session", o.session.ID())
	o.intent = understanding.NewIntentAnalyzer(services.LLM, o.log)
	o.suggest = understanding.NewSuggestionEngine(services.LLM, o.log)

	return o
}

func (o *Orchestrator) Session() *conversation.Session { return o.session }

func (o *Orchestrator) Profile() *core.Profile { return o.session.Profile() }

// AutoSpeak is the effective auto-speak setting for this session.
func (o *Orchestrator) AutoSpeak() bool {
	if o.autoSpeak != nil {
		return *o.autoSpeak
	}
	if p := o.Profile(); p != nil {
		return p.ReplyStrategy.AutoSpeak
	}
	return false
}

// HandleLocalText records what the operator typed and returns reply
// suggestions. speak forces the first suggestion to be voiced.
func (o *Orchestrator) HandleLocalText(ctx context.Context, text string, speak bool) []core.Suggestion {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	o.record(ctx, core.Utterance{
		Speaker:   o.local,
		Text:      text,
		Timestamp: time.Now().UTC(),
		Source:    core.SourceKeyboard,
	})

	return o.respond(ctx, speak)
}

// HandleRemoteText records a typed line from the other party.
func (o *Orchestrator) HandleRemoteText(ctx context.Context, text string) []core.Suggestion {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	o.record(ctx, core.Utterance{
		Speaker:   core.RemoteParticipant(),
		Text:      text,
		Timestamp: time.Now().UTC(),
		Source:    core.SourceKeyboard,
	})

	return o.respond(ctx, false)
}

// HandleRemoteAudio transcribes one clip from the other party and answers
// it like HandleRemoteText.
func (o *Orchestrator) HandleRemoteAudio(ctx context.Context, audio []byte, languageHint string) []core.Suggestion {
	if len(audio) == 0 {
		return nil
	}
	if o.services.ASR == nil {
		o.log.Warn("No ASR backend configured, dropping audio", "bytes", len(audio))
		return nil
	}

	var u core.Utterance
	err := logging.Timed(o.log, "transcribe", func() error {
		var err error
		u, err = o.services.ASR.Transcribe(ctx, audio, languageHint)
		return err
	})
	if err != nil {
		o.log.Warn("Transcription failed", "outcome", provider.Classify(err), "err", err)
		return nil
	}

	u.Text = strings.TrimSpace(u.Text)
	if u.Text == "" {
		o.log.Debug("Empty transcript")
		return nil
	}

	o.record(ctx, u)

	return o.respond(ctx, false)
}

// Say voices text directly and records it as spoken by the operator's agent.
func (o *Orchestrator) Say(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if o.services.TTS == nil {
		return ErrNoTTS
	}

	audio, err := o.synthesize(ctx, text)
	if err != nil {
		return err
	}

	if o.output == nil {
		o.log.Info("Synthesized speech without audio output", "bytes", len(audio))
	} else if err := o.output.PlayToDevice(ctx, o.outputDevice(), audio); err != nil {
		return fmt.Errorf("play: %w", err)
	}

	// Only what was actually spoken enters the history.
	o.record(ctx, core.Utterance{
		Speaker:   o.local,
		Text:      text,
		Timestamp: time.Now().UTC(),
		Source:    core.SourceAgent,
	})

	return nil
}

func (o *Orchestrator) respond(ctx context.Context, speak bool) []core.Suggestion {
	if o.services.LLM == nil {
		o.log.Warn("No LLM configured, skipping suggestions")
		return nil
	}

	var intent understanding.IntentResult
	logging.Timed(o.log, "intent", func() error {
		intent = o.intent.Analyze(ctx, o.session)
		return nil
	})

	o.log.Debug("Intent",
		"intent", intent.Intent,
		"topic", intent.Topic,
		"emotion", intent.Emotion,
		"clarify", intent.AskForClarification,
	)

	var suggestions []core.Suggestion
	logging.Timed(o.log, "suggest", func() error {
		suggestions = o.suggest.Generate(ctx, o.session, intent)
		return nil
	})

	for _, sg := range suggestions {
		o.session.AddSuggestion(sg)
		o.publish(ctx, Event{Kind: EventSuggestion, Speaker: string(core.RoleAgent), Text: sg.Text})
	}

	if (speak || o.AutoSpeak()) && len(suggestions) > 0 {
		o.speak(ctx, suggestions[0].Text)
	}

	return suggestions
}

// speak never fails the turn: errors are logged.
func (o *Orchestrator) speak(ctx context.Context, text string) {
	if o.services.TTS == nil {
		o.log.Debug("Speech requested without a TTS backend")
		return
	}

	audio, err := o.synthesize(ctx, text)
	if err != nil {
		o.log.Warn("Synthesis failed", "outcome", provider.Classify(err), "err", err)
		return
	}

	if o.output == nil {
		o.log.Info("Synthesized speech without audio output", "bytes", len(audio))
		return
	}

	if err := o.output.PlayToDevice(ctx, o.outputDevice(), audio); err != nil {
		o.log.Warn("Playback failed", "device", o.outputDevice(), "err", err)
	}
}

func (o *Orchestrator) synthesize(ctx context.Context, text string) ([]byte, error) {
	voice := o.voice
	var style string
	if p := o.Profile(); p != nil {
		if voice == "" {
			voice = p.DefaultVoice
		}
		style = p.Meta("voice_style")
	}

	var audio []byte
	err := logging.Timed(o.log, "synthesize", func() error {
		var err error
		audio, err = o.services.TTS.Synthesize(ctx, text, voice, style)
		return err
	})
	if err != nil {
		return nil, err
	}

	o.publish(ctx, Event{Kind: EventSpeech, Speaker: string(core.RoleAgent), Text: text})

	return audio, nil
}

func (o *Orchestrator) outputDevice() string {
	if p := o.Profile(); p != nil {
		return p.OutputDevice
	}
	return ""
}

func (o *Orchestrator) record(ctx context.Context, u core.Utterance) {
	o.session.AddUtterance(u)
	o.log.Debug("Utterance", "speaker", u.Speaker.Role, "source", u.Source, "text", u.Text)
	o.publish(ctx, Event{Kind: EventUtterance, Speaker: string(u.Speaker.Role), Text: u.Text, At: u.Timestamp})
}
