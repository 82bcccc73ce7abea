package audio

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"github.com/gordonklaus/portaudio"

	"voicebridge/pkg/audioconv"
)

const (
	DefaultDevice   = "default"
	framesPerBuffer = 1024
	fallbackRate    = 48000
)

// SelfName is the application.name our own output stream carries, so the
// ducker leaves it alone.
const SelfName = "voicebridge"

var ErrNoDevice = errors.New("output device not found")

type Device struct {
	Index      int     `json:"index"`
	Name       string  `json:"name"`
	Channels   int     `json:"channels"`
	SampleRate float64 `json:"sample_rate"`
	Default    bool    `json:"default"`
}

// Player plays encoded clips (wav/mp3/ogg) on a named portaudio output.
type Player struct {
	ducker *Ducker
	log    *log.Logger

	DuckFactor float64
	Fade       time.Duration
}

func NewPlayer(ducker *Ducker, logger *log.Logger) *Player {
	if logger == nil {
		logger = log.Default()
	}
	return &Player{
		ducker:     ducker,
		log:        logger.With("component", "player"),
		DuckFactor: 0.3,
		Fade:       150 * time.Millisecond,
	}
}

func (p *Player) Init() error {
	return portaudio.Initialize()
}

func (p *Player) Close() {
	portaudio.Terminate()
}

// PlayToDevice blocks until the clip has been written out or ctx is done.
// An empty deviceID or "default" selects the system default output.
func (p *Player) PlayToDevice(ctx context.Context, deviceID string, audio []byte) error {
	if len(audio) == 0 {
		return nil
	}

	dev, err := outputDevice(deviceID)
	if err != nil {
		return err
	}

	rate := int(dev.DefaultSampleRate)
	if rate <= 0 {
		rate = fallbackRate
	}

	pcm, err := audioconv.Decode(audio, audioconv.Options{SampleRate: rate})
	if err != nil {
		return fmt.Errorf("decode clip: %w", err)
	}

	params := portaudio.HighLatencyParameters(nil, dev)
	params.Output.Channels = 1
	params.SampleRate = float64(rate)
	params.FramesPerBuffer = framesPerBuffer

	buf := make([]float32, framesPerBuffer)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return fmt.Errorf("open stream on %q: %w", dev.Name, err)
	}
	defer stream.Close()

	if p.ducker != nil {
		if err := p.ducker.DuckOthers(ctx, p.DuckFactor, p.Fade); err != nil {
			p.log.Warn("Failed to duck other streams", "err", err)
		}
		defer func() {
			if err := p.ducker.UnduckOthers(context.WithoutCancel(ctx), p.Fade); err != nil {
				p.log.Warn("Failed to restore other streams", "err", err)
			}
		}()
	}

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	defer stream.Stop()

	p.log.Debug("Playing clip", "device", dev.Name, "samples", len(pcm), "rate", rate)

	for off := 0; off < len(pcm); off += len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := copy(buf, pcm[off:])
		clear(buf[n:])

		if err := stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			return fmt.Errorf("write stream: %w", err)
		}
	}

	return nil
}

// ListOutputDevices requires portaudio to be initialized.
func ListOutputDevices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	var defName string
	if def, err := portaudio.DefaultOutputDevice(); err == nil && def != nil {
		defName = def.Name
	}

	var out []Device
	for _, d := range devices {
		if d.MaxOutputChannels <= 0 {
			continue
		}
		out = append(out, Device{
			Index:      d.Index,
			Name:       d.Name,
			Channels:   d.MaxOutputChannels,
			SampleRate: d.DefaultSampleRate,
			Default:    d.Name == defName,
		})
	}

	return out, nil
}

func outputDevice(name string) (*portaudio.DeviceInfo, error) {
	if isDefault(name) {
		dev, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, fmt.Errorf("default output: %w", err)
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	dev := matchDevice(devices, name)
	if dev == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoDevice, name)
	}

	return dev, nil
}

func isDefault(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || strings.EqualFold(name, DefaultDevice)
}

// matchDevice prefers an exact name, then a case-insensitive substring.
// Only devices with output channels qualify.
func matchDevice(devices []*portaudio.DeviceInfo, name string) *portaudio.DeviceInfo {
	name = strings.TrimSpace(name)
	lower := strings.ToLower(name)

	var partial *portaudio.DeviceInfo
	for _, d := range devices {
		if d == nil || d.MaxOutputChannels <= 0 {
			continue
		}
		if d.Name == name {
			return d
		}
		if partial == nil && strings.Contains(strings.ToLower(d.Name), lower) {
			partial = d
		}
	}

	return partial
}
