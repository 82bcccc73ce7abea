package bus

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"voicebridge/internal/orchestrator"
)

// Kinds accepted from the hub. Everything else is ignored.
const (
	KindRemoteText  = "remote_text"
	KindRemoteAudio = "remote_audio"
	KindSay         = "say"
)

type Message struct {
	From     string    `json:"from"`
	To       string    `json:"to"`
	Kind     string    `json:"kind"`
	Content  string    `json:"content"`
	Audio    []byte    `json:"audio,omitempty"`
	Language string    `json:"language,omitempty"`
	Session  string    `json:"session,omitempty"`
	Speaker  string    `json:"speaker,omitempty"`
	At       time.Time `json:"at,omitzero"`
}

// Bus is a websocket link to the hub. It publishes pipeline events and
// delivers inbound messages; a dropped connection is redialled.
type Bus struct {
	mu     sync.Mutex
	conn   *ws.Conn
	url    string
	name   string
	reconn time.Duration
	log    *log.Logger
}

func Dial(ctx context.Context, url, name string, reconn time.Duration, logger *log.Logger) (*Bus, error) {
	if logger == nil {
		logger = log.Default()
	}
	if reconn <= 0 {
		reconn = time.Second
	}

	conn, _, err := ws.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	logger.Info("Connected to bus", "url", url)

	return &Bus{
		conn:   conn,
		url:    url,
		name:   name,
		reconn: reconn,
		log:    logger.With("component", "bus"),
	}, nil
}

// Publish implements orchestrator.Sink.
func (b *Bus) Publish(ctx context.Context, ev orchestrator.Event) error {
	return b.Write(ctx, Message{
		From:    b.name,
		To:      "*",
		Kind:    string(ev.Kind),
		Content: ev.Text,
		Session: ev.SessionID,
		Speaker: ev.Speaker,
		At:      ev.At,
	})
}

func (b *Bus) Write(ctx context.Context, m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if dl, ok := ctx.Deadline(); ok {
		b.conn.SetWriteDeadline(dl)
		defer b.conn.SetWriteDeadline(time.Time{})
	}

	b.log.Debug("Write bus", "kind", m.Kind)
	return b.conn.WriteMessage(ws.TextMessage, data)
}

// Run reads until ctx is done, redialling on close. Malformed frames are
// logged and skipped.
func (b *Bus) Run(ctx context.Context, handle func(Message)) error {
	go func() {
		<-ctx.Done()
		b.Close()
	}()

	for {
		b.mu.Lock()
		conn := b.conn
		b.mu.Unlock()

		_, raw, err := conn.ReadMessage()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if !isClosed(err) {
				b.log.Warn("Bus read failed", "err", err)
			}
			if err := b.redial(ctx); err != nil {
				return err
			}
			continue
		}

		var m Message
		if err := json.Unmarshal(raw, &m); err != nil {
			b.log.Warn("Dropping malformed bus message", "err", err)
			continue
		}
		if m.To != "" && m.To != "*" && m.To != b.name {
			continue
		}

		handle(m)
	}
}

func (b *Bus) redial(ctx context.Context) error {
	for {
		conn, _, err := ws.DefaultDialer.DialContext(ctx, b.url, nil)
		if err == nil {
			b.mu.Lock()
			b.conn.Close()
			b.conn = conn
			b.mu.Unlock()
			b.log.Info("Reconnected to bus", "url", b.url)
			return nil
		}

		b.log.Debug("Bus redial failed", "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.reconn):
		}
	}
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn.Close()
}

func isClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
