package peer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/chathub"
	"givebox/backend/internal/config"

	"github.com/gorilla/websocket"
)

const streamBuffer = 64

// Stream is the client end of /ws.
type Stream struct {
	conn    *websocket.Conn
	frames  chan chathub.ServerFrame
	done    chan struct{}
	closing chan struct{}

	writeMu sync.Mutex
	once    sync.Once
	err     error
}

// Connect opens the websocket and starts reading frames.
func (c *Client) Connect(ctx context.Context) (*Stream, error) {
	wsURL := "ws" + strings.TrimPrefix(c.BaseURL, "http") + "/ws"
	header := http.Header{"Authorization": {"Bearer " + c.Token}}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, statusError(resp.StatusCode, "")
		}
		return nil, apperr.Upstream("dial websocket", err)
	}

	s := &Stream{
		conn:    conn,
		frames:  make(chan chathub.ServerFrame, streamBuffer),
		done:    make(chan struct{}),
		closing: make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Frames is closed when the connection ends; Err then reports why.
func (s *Stream) Frames() <-chan chathub.ServerFrame { return s.frames }

func (s *Stream) Err() error {
	<-s.done
	return s.err
}

func (s *Stream) Subscribe(conversationID string) error {
	return s.send(chathub.ClientCommand{Action: chathub.ActionSubscribe, ConversationID: conversationID})
}

func (s *Stream) Unsubscribe(conversationID string) error {
	return s.send(chathub.ClientCommand{Action: chathub.ActionUnsubscribe, ConversationID: conversationID})
}

// Heartbeat refreshes the caller's presence in every subscribed conversation.
func (s *Stream) Heartbeat() error {
	return s.send(chathub.ClientCommand{Action: chathub.ActionHeartbeat})
}

// KeepAlive sends heartbeats until ctx ends or the stream closes.
func (s *Stream) KeepAlive(ctx context.Context) {
	ticker := time.NewTicker(config.PresenceHeartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.Heartbeat(); err != nil {
				slog.WarnContext(ctx, "heartbeat failed", "error", err)
			}
		}
	}
}

func (s *Stream) Close() error {
	s.once.Do(func() { close(s.closing) })
	s.writeMu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	s.writeMu.Unlock()
	err := s.conn.Close()
	<-s.done
	return err
}

func (s *Stream) send(cmd chathub.ClientCommand) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(cmd); err != nil {
		return apperr.Upstream("websocket write", err)
	}
	return nil
}

func (s *Stream) readLoop() {
	defer func() {
		close(s.frames)
		close(s.done)
	}()
	for {
		var f chathub.ServerFrame
		if err := s.conn.ReadJSON(&f); err != nil {
			select {
			case <-s.closing:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.err = fmt.Errorf("websocket read: %w", err)
				}
			}
			return
		}
		select {
		case s.frames <- f:
		case <-s.closing:
			return
		}
	}
}
