package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"voicebridge/internal/ipc"
)

const usage = `usage: voicebridge-ctl [flags] <command> [text]

commands:
  input <text>    what you said or typed; prints suggestions
  remote <text>   what the other side said
  say <text>      speak text now
  listen          record the other side from the microphone
  devices         list audio output devices
`

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	speak := cli.Bool("speak", false, "Speak the first suggestion (input only)")
	timeout := cli.DurationP("timeout", "t", 90*time.Second, "Reply timeout")
	cli.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		cli.PrintDefaults()
	}
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		cli.Usage()
		os.Exit(2)
	}

	msg := ipc.ControlMessage{
		Cmd:   args[0],
		Text:  strings.Join(args[1:], " "),
		Speak: *speak,
	}

	switch msg.Cmd {
	case ipc.CmdInput, ipc.CmdRemote, ipc.CmdSay:
		if strings.TrimSpace(msg.Text) == "" {
			fmt.Fprintf(os.Stderr, "%s needs text\n", msg.Cmd)
			os.Exit(2)
		}
	case ipc.CmdListen, ipc.CmdDevices:
	default:
		cli.Usage()
		os.Exit(2)
	}

	reply, err := ipc.SendCommand(*socket, msg, *timeout)
	if err != nil {
		fmt.Println("voicebridge-daemon not running:", err)
		os.Exit(1)
	}

	if !reply.OK {
		fmt.Fprintln(os.Stderr, "error:", reply.Error)
		os.Exit(1)
	}

	if reply.Transcript != "" {
		fmt.Printf("heard: %s\n", reply.Transcript)
	}
	for i, s := range reply.Suggestions {
		fmt.Printf("%d) %s\n", i+1, s.Text)
	}
	for _, d := range reply.Devices {
		fmt.Println(d)
	}
}
