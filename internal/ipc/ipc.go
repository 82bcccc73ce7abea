package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net"
	"os"
	"time"

	"voicebridge/internal/core"
)

const DefaultSocketPath = "/tmp/voicebridge.sock"

const (
	CmdInput   = "input"
	CmdRemote  = "remote"
	CmdSay     = "say"
	CmdListen  = "listen"
	CmdDevices = "devices"
)

type ControlMessage struct {
	Cmd   string `json:"cmd"`
	Text  string `json:"text,omitempty"`
	Speak bool   `json:"speak,omitempty"`
}

type ControlReply struct {
	OK          bool              `json:"ok"`
	Error       string            `json:"error,omitempty"`
	Transcript  string            `json:"transcript,omitempty"`
	Suggestions []core.Suggestion `json:"suggestions,omitempty"`
	Devices     []string          `json:"devices,omitempty"`
}

type Handler func(ControlMessage) ControlReply

type Server struct {
	ln   net.Listener
	path string
}

// Listen binds the control socket, replacing a stale one, and serves each
// connection in its own goroutine.
func Listen(path string, handler Handler) (*Server, error) {
	if path == "" {
		path = DefaultSocketPath
	}
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	s := &Server{ln: ln, path: path}

	go func() {
		for {
			conn, err := ln.Accept()
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if err != nil {
				log.Warn("Failed to accept control connection", "err", err)
				continue
			}
			go handleConn(conn, handler)
		}
	}()

	return s, nil
}

func (s *Server) Close() error {
	err := s.ln.Close()
	os.Remove(s.path)
	return err
}

func handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		if !errors.Is(err, io.EOF) {
			json.NewEncoder(conn).Encode(ControlReply{Error: fmt.Sprintf("bad message: %v", err)})
		}
		return
	}

	reply := handler(msg)
	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		log.Debug("Failed to write control reply", "cmd", msg.Cmd, "err", err)
	}
}

// SendCommand sends one message and waits up to timeout for the reply.
func SendCommand(path string, msg ControlMessage, timeout time.Duration) (ControlReply, error) {
	if path == "" {
		path = DefaultSocketPath
	}

	conn, err := net.Dial("unix", path)
	if err != nil {
		return ControlReply{}, err
	}
	defer conn.Close()

	if timeout > 0 {
		conn.SetDeadline(time.Now().Add(timeout))
	}

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return ControlReply{}, fmt.Errorf("send: %w", err)
	}

	var reply ControlReply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return ControlReply{}, fmt.Errorf("read reply: %w", err)
	}

	return reply, nil
}
