// Package push delivers notifications to registered devices.
package push

import (
	"context"
	"errors"
	"fmt"

	"givebox/backend/internal/models"
)

// ErrGone means the endpoint no longer exists and its registration should
// be deleted.
var ErrGone = errors.New("push endpoint gone")

// Message is the payload delivered to a device.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Type  string `json:"type,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, reg models.PushRegistration, msg Message) error
}

// Router dispatches to the sender of the registration's channel.
type Router map[models.PushChannel]Sender

func (r Router) Send(ctx context.Context, reg models.PushRegistration, msg Message) error {
	s, ok := r[reg.Channel]
	if !ok {
		return fmt.Errorf("no sender for channel %q", reg.Channel)
	}
	return s.Send(ctx, reg, msg)
}
