package ipc

import (
	"path/filepath"
	"testing"
	"time"

	"voicebridge/internal/core"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctl.sock")

	gotCh := make(chan ControlMessage, 1)
	srv, err := Listen(path, func(msg ControlMessage) ControlReply {
		gotCh <- msg
		return ControlReply{OK: true, Suggestions: []core.Suggestion{{Text: "Sure."}}}
	})
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer srv.Close()

	reply, err := SendCommand(path, ControlMessage{Cmd: CmdInput, Text: "hello", Speak: true}, time.Second)
	if err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}

	got := <-gotCh
	if got.Cmd != CmdInput || got.Text != "hello" || !got.Speak {
		t.Errorf("unexpected message %+v", got)
	}
	if !reply.OK || len(reply.Suggestions) != 1 || reply.Suggestions[0].Text != "Sure." {
		t.Errorf("unexpected reply %+v", reply)
	}
}

func TestSendCommandNoDaemon(t *testing.T) {
	_, err := SendCommand(filepath.Join(t.TempDir(), "missing.sock"), ControlMessage{Cmd: CmdDevices}, time.Second)
	if err == nil {
		t.Fatal("expected error when nothing listens")
	}
}
