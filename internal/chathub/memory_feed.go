package chathub

import (
	"context"
	"log/slog"
	"sync"

	"givebox/backend/internal/models"
)

const subscriptionBuffer = 64

// MemoryFeed is an in-process Feed for single-node deployments and tests.
// A subscriber that falls behind loses events and must re-list.
type MemoryFeed struct {
	mu     sync.Mutex
	topics map[string]map[*Subscription]struct{}
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{topics: make(map[string]map[*Subscription]struct{})}
}

func (f *MemoryFeed) Publish(ctx context.Context, change models.Change) error {
	topic := Topic(change.Table, change.ConversationID)

	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.topics[topic] {
		select {
		case sub.events <- change:
		default:
			slog.WarnContext(ctx, "subscriber behind, dropping change", "topic", topic)
		}
	}
	return nil
}

func (f *MemoryFeed) Subscribe(_ context.Context, topics ...string) (*Subscription, error) {
	var sub *Subscription
	sub = newSubscription(subscriptionBuffer, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, t := range topics {
			delete(f.topics[t], sub)
			if len(f.topics[t]) == 0 {
				delete(f.topics, t)
			}
		}
		close(sub.events)
	})

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range topics {
		if f.topics[t] == nil {
			f.topics[t] = make(map[*Subscription]struct{})
		}
		f.topics[t][sub] = struct{}{}
	}
	return sub, nil
}

// Subscribers returns the number of live subscriptions on topic.
func (f *MemoryFeed) Subscribers(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.topics[topic])
}
