package main

import (
	"bufio"
	"context"
	"fmt"
	log "log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	cli "github.com/spf13/pflag"

	"voicebridge/internal/app"
	"voicebridge/internal/audio"
	"voicebridge/internal/core"
	"voicebridge/internal/orchestrator"
)

const help = `Type what you said and press enter.
  <n>         speak suggestion n
  :r <text>   the other side said <text>
  :s <text>   speak <text> as is
  :q          quit`

func main() {
	flags := app.RegisterFlags(cli.CommandLine)
	smoke := cli.Bool("smoke", false, "Load config, report capabilities and exit")
	speak := cli.Bool("speak", false, "Speak the first suggestion of every turn")
	noAudio := cli.Bool("no-audio", false, "Synthesize without playing")
	cli.Parse()

	a, err := app.Boot(flags)
	if err != nil {
		log.Error("Failed to boot", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	if *smoke {
		fmt.Printf("profile: %s (%s, tts_backend=%s, device=%s)\n",
			a.Profile.Name, a.Profile.InputMode, a.Profile.TTSBackend, a.Profile.OutputDevice)
		for _, line := range a.Services.Describe() {
			fmt.Println(line)
		}
		if err := a.Services.Require(); err != nil {
			fmt.Println("smoke:", err)
			os.Exit(1)
		}
		fmt.Println("smoke: ok")
		return
	}

	opts := []orchestrator.Option{orchestrator.WithLogger(a.Log)}
	if !*noAudio && a.Services.TTS != nil {
		player := audio.NewPlayer(nil, a.Log)
		if err := player.Init(); err != nil {
			log.Warn("Audio output unavailable", "err", err)
		} else {
			defer player.Close()
			opts = append(opts, orchestrator.WithOutput(player))
		}
	}

	orc := orchestrator.New(a.Profile, a.Services.Services, opts...)
	defer orc.Session().End()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println(help)
	loop(ctx, orc, *speak)
}

func loop(ctx context.Context, orc *orchestrator.Orchestrator, speak bool) {
	in := bufio.NewScanner(os.Stdin)
	var last []core.Suggestion

	for {
		fmt.Print("> ")
		if !in.Scan() || ctx.Err() != nil {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(in.Text())

		switch {
		case line == "":
			continue

		case line == ":q":
			return

		case strings.HasPrefix(line, ":r "):
			last = orc.HandleRemoteText(ctx, strings.TrimPrefix(line, ":r "))
			show(last)

		case strings.HasPrefix(line, ":s "):
			if err := orc.Say(ctx, strings.TrimPrefix(line, ":s ")); err != nil {
				fmt.Println("say:", err)
			}

		default:
			if n, err := strconv.Atoi(line); err == nil {
				if n < 1 || n > len(last) {
					fmt.Println("no such suggestion")
					continue
				}
				if err := orc.Say(ctx, last[n-1].Text); err != nil {
					fmt.Println("say:", err)
				}
				continue
			}

			last = orc.HandleLocalText(ctx, line, speak)
			show(last)
		}
	}
}

func show(suggestions []core.Suggestion) {
	if len(suggestions) == 0 {
		fmt.Println("(no suggestions)")
		return
	}
	for i, s := range suggestions {
		fmt.Printf("  %d) %s\n", i+1, s.Text)
	}
}
