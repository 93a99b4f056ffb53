package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/chat"
	"givebox/backend/internal/chathub"
	"givebox/backend/internal/config"
	"givebox/backend/internal/livelocation"
	"givebox/backend/internal/models"
	"givebox/backend/internal/presence"
)

// Conversation is the local state of one followed conversation.
type Conversation struct {
	ID        string
	Timeline  *chat.Timeline
	Presence  *presence.View
	Locations *livelocation.Board
}

func NewConversation(self, conversationID string, staleAfter time.Duration) *Conversation {
	return &Conversation{
		ID:        conversationID,
		Timeline:  chat.NewTimeline(conversationID),
		Presence:  presence.NewView(self, conversationID, staleAfter),
		Locations: livelocation.NewBoard(self, conversationID),
	}
}

// Follow subscribes to conversationID, waits for the server to confirm and
// then catches up over HTTP. Changes that arrive while catching up are
// applied afterwards; the timeline dedupes the overlap.
func (c *Client) Follow(ctx context.Context, s *Stream, conversationID string, staleAfter time.Duration) (*Conversation, error) {
	if err := s.Subscribe(conversationID); err != nil {
		return nil, err
	}

	var pending []chathub.ServerFrame
wait:
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case f, ok := <-s.Frames():
			if !ok {
				return nil, apperr.Upstream("follow", fmt.Errorf("stream closed: %v", s.Err()))
			}
			if f.ConversationID != conversationID {
				continue
			}
			switch f.Type {
			case chathub.FrameSubscribed:
				break wait
			case chathub.FrameError:
				return nil, fmt.Errorf("subscribe %s: %s: %w", conversationID, f.Error, apperr.ErrForbidden)
			case chathub.FrameChange:
				pending = append(pending, f)
			}
		}
	}

	conv := NewConversation(c.UserID, conversationID, staleAfter)
	if err := c.CatchUp(ctx, conv); err != nil {
		return nil, err
	}
	for _, f := range pending {
		if _, err := conv.Handle(f); err != nil {
			slog.WarnContext(ctx, "dropping malformed change", "conversation_id", conversationID, "error", err)
		}
	}
	return conv, nil
}

// CatchUp loads the current state of conv from the API. Messages are paged
// back from the newest until a short page.
func (c *Client) CatchUp(ctx context.Context, conv *Conversation) error {
	size := c.PageSize
	if size <= 0 || size > config.DefaultMessageLimit {
		size = config.DefaultMessageLimit
	}
	var before int64
	for {
		page, err := c.ListMessages(ctx, conv.ID, size, before)
		if err != nil {
			return err
		}
		conv.Timeline.Merge(page...)
		if len(page) < size {
			break
		}
		before = page[0].ID
	}

	rows, err := c.Presence(ctx, conv.ID)
	if err != nil {
		return err
	}
	for _, p := range rows {
		conv.Presence.Observe(p)
	}

	locs, err := c.Locations(ctx, conv.ID)
	if err != nil {
		return err
	}
	for _, l := range locs {
		conv.Locations.Observe(l)
	}
	return nil
}

// Handle applies one frame and returns the messages it added.
func (conv *Conversation) Handle(f chathub.ServerFrame) ([]models.Message, error) {
	if f.Type != chathub.FrameChange || f.Change == nil || f.ConversationID != conv.ID {
		return nil, nil
	}
	switch f.Change.Table {
	case models.TableMessages:
		if f.Change.Op == models.OpDelete {
			return nil, nil
		}
		var msg models.Message
		if err := json.Unmarshal(f.Change.Record, &msg); err != nil {
			return nil, fmt.Errorf("decode message change: %w", err)
		}
		return conv.Timeline.Merge(msg), nil
	case models.TablePresence:
		_, err := conv.Presence.Apply(*f.Change)
		return nil, err
	case models.TableLiveLocations:
		return nil, conv.Locations.Apply(*f.Change)
	}
	return nil, nil
}
