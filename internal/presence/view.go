package presence

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"givebox/backend/internal/models"
)

// View is a peer's local picture of the other participants. It is fed from
// an initial list and from pushed presence changes.
type View struct {
	Self           string
	ConversationID string
	StaleAfter     time.Duration

	mu      sync.Mutex
	records map[string]models.Presence
}

func NewView(self, conversationID string, staleAfter time.Duration) *View {
	return &View{
		Self:           self,
		ConversationID: conversationID,
		StaleAfter:     staleAfter,
		records:        make(map[string]models.Presence),
	}
}

// Observe records p unless it is our own, for another conversation, or
// older than what we already hold.
func (v *View) Observe(p models.Presence) bool {
	if p.UserID == v.Self || p.ConversationID != v.ConversationID {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if cur, ok := v.records[p.UserID]; ok && p.LastSeen.Before(cur.LastSeen) {
		return false
	}
	v.records[p.UserID] = p
	return true
}

// Apply decodes a presence change and observes it.
func (v *View) Apply(change models.Change) (bool, error) {
	if change.Table != models.TablePresence || change.ConversationID != v.ConversationID {
		return false, nil
	}
	var p models.Presence
	if err := json.Unmarshal(change.Record, &p); err != nil {
		return false, fmt.Errorf("decode presence change: %w", err)
	}
	if change.Op == models.OpDelete {
		v.mu.Lock()
		delete(v.records, p.UserID)
		v.mu.Unlock()
		return true, nil
	}
	return v.Observe(p), nil
}

// Online applies the staleness timeout: a record without a fresh heartbeat
// reads as offline even if no offline push arrived.
func (v *View) Online(userID string, now time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.records[userID]
	return ok && p.OnlineAt(now, v.StaleAfter)
}

func (v *View) Snapshot(now time.Time) []PeerStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]PeerStatus, 0, len(v.records))
	for _, p := range v.records {
		out = append(out, PeerStatus{UserID: p.UserID, Online: p.OnlineAt(now, v.StaleAfter), LastSeen: p.LastSeen})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
