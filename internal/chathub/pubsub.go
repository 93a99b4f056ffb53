package chathub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisFeed fans changes out through Redis Pub/Sub so every API node sees
// every write.
type RedisFeed struct {
	Redis *redis.Client
}

func NewRedisFeed(rdb *redis.Client) *RedisFeed {
	return &RedisFeed{Redis: rdb}
}

func (f *RedisFeed) Publish(ctx context.Context, change models.Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	if err := f.Redis.Publish(ctx, Topic(change.Table, change.ConversationID), payload).Err(); err != nil {
		return apperr.Upstream("publish change", err)
	}
	return nil
}

// Subscribe returns once Redis has confirmed the subscription, so no change
// committed after it returns is missed.
func (f *RedisFeed) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	ps := f.Redis.Subscribe(ctx, topics...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, apperr.Upstream("subscribe", err)
	}

	done := make(chan struct{})
	sub := newSubscription(subscriptionBuffer, func() {
		close(done)
		_ = ps.Close()
	})

	go func() {
		defer close(sub.events)
		ch := ps.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var change models.Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					slog.Warn("error unmarshalling change", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case sub.events <- change:
				case <-done:
					return
				}
			}
		}
	}()
	return sub, nil
}
