package chat

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"givebox/backend/internal/models"
)

// Timeline is a client-side view of one conversation that merges an initial
// list with live changes. Entries are unique by id and kept in
// (created_at, id) order, so duplicates on the seam are harmless.
type Timeline struct {
	ConversationID string

	mu   sync.Mutex
	msgs []models.Message
	pos  map[int64]int
}

func NewTimeline(conversationID string) *Timeline {
	return &Timeline{ConversationID: conversationID, pos: make(map[int64]int)}
}

// Merge inserts new messages and replaces known ones. A known message that is
// read stays read, so a redelivered insert cannot undo a read receipt. It
// returns the messages that were not seen before.
func (t *Timeline) Merge(msgs ...models.Message) []models.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	var added []models.Message
	for _, m := range msgs {
		if m.ConversationID != t.ConversationID {
			continue
		}
		if i, ok := t.pos[m.ID]; ok {
			m.IsRead = m.IsRead || t.msgs[i].IsRead
			t.msgs[i] = m
			continue
		}
		t.msgs = append(t.msgs, m)
		t.pos[m.ID] = len(t.msgs) - 1
		added = append(added, m)
	}
	if len(added) > 0 {
		sort.SliceStable(t.msgs, func(i, j int) bool { return t.msgs[i].Before(t.msgs[j]) })
		for i, m := range t.msgs {
			t.pos[m.ID] = i
		}
	}
	return added
}

// Apply merges a message change and reports whether it added a message.
// Changes for other tables or conversations are ignored.
func (t *Timeline) Apply(change models.Change) (bool, error) {
	if change.Table != models.TableMessages || change.ConversationID != t.ConversationID {
		return false, nil
	}
	if change.Op == models.OpDelete {
		return false, nil
	}
	var msg models.Message
	if err := json.Unmarshal(change.Record, &msg); err != nil {
		return false, fmt.Errorf("decode message change: %w", err)
	}
	return len(t.Merge(msg)) > 0, nil
}

// Messages returns a copy of the ordered log.
func (t *Timeline) Messages() []models.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.Message(nil), t.msgs...)
}

func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.msgs)
}
