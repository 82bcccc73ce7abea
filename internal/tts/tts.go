package tts

import "context"

// Synthesizer is the text-to-speech capability. The returned bytes are an
// encoded audio clip (mp3 or wav, depending on the backend).
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID, style string) ([]byte, error)
}
