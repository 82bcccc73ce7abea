package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"

	"voicebridge/pkg/audioconv"
)

const (
	recordRate      = audioconv.WhisperRate
	recordFrame     = 320 // 20ms
	frameDuration   = 20 * time.Millisecond
	silenceRMS      = 0.015
	trailingSilence = 600 * time.Millisecond
	maxRecording    = 10 * time.Second
)

var ErrNoSpeech = errors.New("no speech recorded")

type Recorder struct{}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// RecordAuto captures from the default input until the speaker pauses, and
// returns 16 kHz mono samples.
func (r *Recorder) RecordAuto(ctx context.Context) ([]float32, error) {
	buf := make([]float32, recordFrame)

	stream, err := portaudio.OpenDefaultStream(1, 0, recordRate, len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start input: %w", err)
	}
	defer stream.Stop()

	var gate speechGate
	maxFrames := int(maxRecording / frameDuration)

	for i := 0; i < maxFrames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		if gate.feed(buf) {
			break
		}
	}

	if len(gate.out) == 0 {
		return nil, ErrNoSpeech
	}

	return gate.out, nil
}

// RecordClip is RecordAuto encoded as a wav clip, the shape ASR expects.
func (r *Recorder) RecordClip(ctx context.Context) ([]byte, error) {
	pcm, err := r.RecordAuto(ctx)
	if err != nil {
		return nil, err
	}
	return audioconv.EncodeWAV(pcm, recordRate)
}

// speechGate drops leading silence, keeps everything after the first loud
// frame and reports done once trailingSilence has passed.
type speechGate struct {
	out      []float32
	speaking bool
	silent   time.Duration
}

func (g *speechGate) feed(frame []float32) bool {
	if frameRMS(frame) > silenceRMS {
		g.speaking = true
		g.silent = 0
		g.out = append(g.out, frame...)
		return false
	}

	if !g.speaking {
		return false
	}

	g.silent += frameDuration
	if g.silent >= trailingSilence {
		return true
	}
	g.out = append(g.out, frame...)

	return false
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
