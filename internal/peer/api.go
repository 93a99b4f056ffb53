package peer

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"givebox/backend/internal/chat"
	"givebox/backend/internal/models"
	"givebox/backend/internal/notify"
	"givebox/backend/internal/presence"
)

func conversationPath(conversationID, suffix string) string {
	return "/api/v1/conversations/" + url.PathEscape(conversationID) + suffix
}

// SendMessage posts a message. It is never retried.
func (c *Client) SendMessage(ctx context.Context, conversationID string, kind models.MessageType, content string, loc *chat.LocationData) (*models.Message, error) {
	body := map[string]any{"message_type": kind, "content": content}
	if loc != nil {
		body["location_data"] = loc
	}
	var msg models.Message
	if err := c.do(once(ctx), http.MethodPost, conversationPath(conversationID, "/messages"), body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages returns up to limit messages older than before, or the newest
// ones when before is 0.
func (c *Client) ListMessages(ctx context.Context, conversationID string, limit int, before int64) ([]models.Message, error) {
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if before != 0 {
		q.Set("before", strconv.FormatInt(before, 10))
	}
	path := conversationPath(conversationID, "/messages")
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *Client) MarkRead(ctx context.Context, conversationID string) (int64, error) {
	var resp struct {
		Updated int64 `json:"updated"`
	}
	if err := c.do(ctx, http.MethodPost, conversationPath(conversationID, "/read"), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (c *Client) SetPresence(ctx context.Context, conversationID string, online bool) error {
	return c.do(ctx, http.MethodPut, conversationPath(conversationID, "/presence"), map[string]bool{"online": online}, nil)
}

// Presence returns the peer records of the conversation as stored rows.
func (c *Client) Presence(ctx context.Context, conversationID string) ([]models.Presence, error) {
	var resp struct {
		Peers []presence.PeerStatus `json:"peers"`
	}
	if err := c.do(ctx, http.MethodGet, conversationPath(conversationID, "/presence"), nil, &resp); err != nil {
		return nil, err
	}
	rows := make([]models.Presence, 0, len(resp.Peers))
	for _, p := range resp.Peers {
		rows = append(rows, models.Presence{
			UserID:         p.UserID,
			ConversationID: conversationID,
			IsOnline:       p.Online,
			LastSeen:       p.LastSeen,
		})
	}
	return rows, nil
}

func (c *Client) Locations(ctx context.Context, conversationID string) ([]models.LiveLocation, error) {
	var resp struct {
		Locations []models.LiveLocation `json:"locations"`
	}
	if err := c.do(ctx, http.MethodGet, conversationPath(conversationID, "/locations"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Locations, nil
}

// StartLocation, UpdateLocation and StopLocation make Client a
// livelocation.Remote.
func (c *Client) StartLocation(ctx context.Context, conversationID string, lat, lng float64, duration time.Duration) (*models.LiveLocation, error) {
	body := map[string]any{
		"latitude":         lat,
		"longitude":        lng,
		"duration_minutes": int(duration / time.Minute),
	}
	var loc models.LiveLocation
	if err := c.do(once(ctx), http.MethodPost, conversationPath(conversationID, "/location"), body, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

func (c *Client) UpdateLocation(ctx context.Context, conversationID string, lat, lng float64) error {
	body := map[string]float64{"latitude": lat, "longitude": lng}
	return c.do(ctx, http.MethodPatch, conversationPath(conversationID, "/location"), body, nil)
}

func (c *Client) StopLocation(ctx context.Context, conversationID string) error {
	return c.do(ctx, http.MethodDelete, conversationPath(conversationID, "/location"), nil, nil)
}

// Push sends a direct push to the given recipients.
func (c *Client) Push(ctx context.Context, recipientIDs []string, title, body string) (*notify.Result, error) {
	req := map[string]any{"recipient_ids": recipientIDs, "title": title, "body": body}
	var res notify.Result
	if err := c.do(once(ctx), http.MethodPost, "/api/v1/push/send", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
