package asr

import (
	"context"
	"time"

	"voicebridge/internal/core"
)

// Transcriber is the speech-to-text capability. Audio is one encoded clip;
// the returned utterance is attributed to the remote participant.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, languageHint string) (core.Utterance, error)
}

// RemoteUtterance attributes a transcript to the remote participant.
func RemoteUtterance(text, language string) core.Utterance {
	return core.Utterance{
		Speaker:   core.RemoteParticipant(),
		Text:      text,
		Language:  language,
		Timestamp: time.Now().UTC(),
		Source:    core.SourceMic,
	}
}
