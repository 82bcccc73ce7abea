package main

import (
	"context"
	"errors"
	log "log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"

	"voicebridge/internal/app"
	"voicebridge/internal/audio"
	"voicebridge/internal/bus"
	"voicebridge/internal/httpapi"
	"voicebridge/internal/ipc"
	"voicebridge/internal/notify"
	"voicebridge/internal/orchestrator"
)

type daemon struct {
	mu     sync.Mutex
	orc    *orchestrator.Orchestrator
	rec    *audio.Recorder
	cue    string
	lang   string
	output bool
	log    *log.Logger
}

func main() {
	flags := app.RegisterFlags(cli.CommandLine)
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	httpAddr := cli.String("http", "", "Serve the HTTP API on this address (e.g. :8093)")
	busURL := cli.StringP("url", "u", "", "Url of hub (default: $VOICEBRIDGE_BUS_URL)")
	noAudio := cli.Bool("no-audio", false, "Disable playback and microphone capture")
	cue := cli.String("cue", "beep.mp3", "Sound played before listening")
	lang := cli.String("lang", "", "Language hint for transcription")
	autoSpeak := cli.String("auto-speak", "", "Override the profile's auto_speak for this run (on|off)")
	cli.Parse()

	a, err := app.Boot(flags)
	if err != nil {
		log.Error("Failed to boot", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	log.Info("Booting up", "profile", a.Profile.Name)
	for _, line := range a.Services.Describe() {
		log.Debug("Capability", "entry", line)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := &daemon{cue: *cue, lang: *lang, log: a.Log}
	opts := []orchestrator.Option{orchestrator.WithLogger(a.Log)}

	switch *autoSpeak {
	case "on":
		opts = append(opts, orchestrator.WithAutoSpeak(true))
	case "off":
		opts = append(opts, orchestrator.WithAutoSpeak(false))
	case "":
	default:
		log.Error("Bad --auto-speak value", "value", *autoSpeak)
		os.Exit(1)
	}

	if !*noAudio {
		player := audio.NewPlayer(audio.NewDucker([]string{audio.SelfName}, 10), a.Log)
		if err := player.Init(); err != nil {
			log.Error("Failed to init audio", "err", err)
			os.Exit(1)
		}
		defer player.Close()
		opts = append(opts, orchestrator.WithOutput(player))
		d.output = true

		d.rec = audio.NewRecorder()
		if err := d.rec.Init(); err != nil {
			log.Error("Failed to init recorder", "err", err)
			os.Exit(1)
		}
		defer d.rec.Close()

		log.Debug("Loaded audio")
	}

	url := *busURL
	if url == "" {
		url = a.Settings.BusURL
	}
	var hub *bus.Bus
	if url != "" {
		hub, err = bus.Dial(ctx, url, "voicebridge", time.Second, a.Log)
		if err != nil {
			log.Error("Failed to connect to bus", "err", err)
			os.Exit(1)
		}
		opts = append(opts, orchestrator.WithSink(hub))
	}

	d.orc = orchestrator.New(a.Profile, a.Services.Services, opts...)
	defer d.orc.Session().End()

	srv, err := ipc.Listen(*socket, d.handle)
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	defer srv.Close()

	if hub != nil {
		go func() {
			if err := hub.Run(ctx, d.handleBus); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Bus stopped", "err", err)
			}
		}()
	}

	var httpSrv *http.Server
	if *httpAddr != "" {
		var lister httpapi.DeviceLister
		if d.output {
			lister = listDevices
		}
		httpSrv = &http.Server{
			Addr:    *httpAddr,
			Handler: httpapi.NewHandler(d.orc, &d.mu, lister, a.Log).Router(),
		}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("HTTP server failed", "err", err)
				stop()
			}
		}()
		log.Info("Serving HTTP API", "addr", *httpAddr)
	}

	log.Info("Boot up - successful", "socket", *socket, "session", d.orc.Session().ID())

	<-ctx.Done()
	log.Info("Shutting down")

	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}
}

func (d *daemon) handle(msg ipc.ControlMessage) ipc.ControlReply {
	ctx := context.Background()

	switch msg.Cmd {
	case ipc.CmdInput:
		d.mu.Lock()
		defer d.mu.Unlock()
		return ipc.ControlReply{OK: true, Suggestions: d.orc.HandleLocalText(ctx, msg.Text, msg.Speak)}

	case ipc.CmdRemote:
		d.mu.Lock()
		defer d.mu.Unlock()
		return ipc.ControlReply{OK: true, Suggestions: d.orc.HandleRemoteText(ctx, msg.Text)}

	case ipc.CmdSay:
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.orc.Say(ctx, msg.Text); err != nil {
			return ipc.ControlReply{Error: err.Error()}
		}
		return ipc.ControlReply{OK: true}

	case ipc.CmdListen:
		return d.listen(ctx)

	case ipc.CmdDevices:
		if !d.output {
			return ipc.ControlReply{Error: "audio disabled"}
		}
		devs, err := audio.ListOutputDevices()
		if err != nil {
			return ipc.ControlReply{Error: err.Error()}
		}
		names := make([]string, 0, len(devs))
		for _, dev := range devs {
			names = append(names, dev.Name)
		}
		return ipc.ControlReply{OK: true, Devices: names}

	default:
		d.log.Warn("Unknown command", "cmd", msg.Cmd)
		return ipc.ControlReply{Error: "unknown command " + msg.Cmd}
	}
}

func listDevices() ([]httpapi.Device, error) {
	devs, err := audio.ListOutputDevices()
	if err != nil {
		return nil, err
	}
	out := make([]httpapi.Device, 0, len(devs))
	for _, dev := range devs {
		out = append(out, httpapi.Device{
			Index:      dev.Index,
			Name:       dev.Name,
			Channels:   dev.Channels,
			SampleRate: dev.SampleRate,
			Default:    dev.Default,
		})
	}
	return out, nil
}

func (d *daemon) listen(ctx context.Context) ipc.ControlReply {
	if d.rec == nil {
		return ipc.ControlReply{Error: "audio disabled"}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := notify.Beep(d.cue); err != nil {
		d.log.Debug("No listen cue", "err", err)
	}

	d.log.Info("Starting listening")

	recCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	clip, err := d.rec.RecordClip(recCtx)
	if err != nil {
		d.log.Error("Failed to record", "err", err)
		return ipc.ControlReply{Error: err.Error()}
	}

	d.log.Info("Recorded", "bytes", len(clip))

	before := len(d.orc.Session().Utterances())
	out := d.orc.HandleRemoteAudio(ctx, clip, d.lang)

	reply := ipc.ControlReply{OK: true, Suggestions: out}
	if utts := d.orc.Session().Utterances(); len(utts) > before {
		reply.Transcript = utts[len(utts)-1].Text
	}
	return reply
}

func (d *daemon) handleBus(m bus.Message) {
	ctx := context.Background()

	d.mu.Lock()
	defer d.mu.Unlock()

	switch m.Kind {
	case bus.KindRemoteText:
		d.orc.HandleRemoteText(ctx, m.Content)
	case bus.KindRemoteAudio:
		d.orc.HandleRemoteAudio(ctx, m.Audio, m.Language)
	case bus.KindSay:
		if err := d.orc.Say(ctx, m.Content); err != nil {
			d.log.Warn("Bus say failed", "err", err)
		}
	default:
		d.log.Debug("Ignoring bus message", "kind", m.Kind, "from", m.From)
	}
}
