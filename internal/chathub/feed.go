package chathub

import (
	"context"
	"sync"

	"givebox/backend/internal/models"
)

// Topic names the feed channel for one table of one conversation.
func Topic(table, conversationID string) string {
	return "changes:" + table + ":" + conversationID
}

// ConversationTopics returns every topic of a conversation.
func ConversationTopics(conversationID string) []string {
	return []string{
		Topic(models.TableMessages, conversationID),
		Topic(models.TablePresence, conversationID),
		Topic(models.TableLiveLocations, conversationID),
	}
}

// Feed carries row changes from writers to subscribers. Delivery is
// at-least-once and ordered per topic only.
type Feed interface {
	Publish(ctx context.Context, change models.Change) error
	Subscribe(ctx context.Context, topics ...string) (*Subscription, error)
}

// Subscription is a scoped handle on one or more topics. Events is closed
// after Close; Close may be called any number of times.
type Subscription struct {
	events chan models.Change
	once   sync.Once
	stop   func()
}

func newSubscription(buffer int, stop func()) *Subscription {
	return &Subscription{events: make(chan models.Change, buffer), stop: stop}
}

func (s *Subscription) Events() <-chan models.Change { return s.events }

func (s *Subscription) Close() {
	s.once.Do(s.stop)
}
