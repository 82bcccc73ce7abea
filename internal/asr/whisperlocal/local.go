// Package whisperlocal adapts the in-process whisper.cpp transcriber to
// asr.Transcriber. It links the C library, so only the service factory
// imports it.
package whisperlocal

import (
	"context"

	"voicebridge/internal/asr"
	"voicebridge/internal/core"
	"voicebridge/internal/provider"
	"voicebridge/pkg/stt"
)

type clipTranscriber interface {
	TranscribeClip(ctx context.Context, clip []byte, opt stt.Options) (stt.Result, error)
}

// Local runs whisper.cpp in-process.
type Local struct {
	tr   clipTranscriber
	opts stt.Options
}

var _ asr.Transcriber = (*Local)(nil)

func New(tr *stt.Transcriber, opts stt.Options) *Local {
	return &Local{tr: tr, opts: opts}
}

func (l *Local) Transcribe(ctx context.Context, audio []byte, languageHint string) (core.Utterance, error) {
	opt := l.opts
	if languageHint != "" {
		opt.Language = languageHint
	}

	res, err := l.tr.TranscribeClip(ctx, audio, opt)
	if err != nil {
		return core.Utterance{}, provider.Wrap("whisper.cpp", "transcribe", err)
	}

	lang := languageHint
	if lang == "" && res.Language != "auto" {
		lang = res.Language
	}

	return asr.RemoteUtterance(res.Text, lang), nil
}
