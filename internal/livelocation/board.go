package livelocation

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"givebox/backend/internal/models"
)

// Board is an observer's view of the peers sharing in one conversation.
// Whether a marker is shown is decided at read time from IsLive, so an
// expired row is hidden even if nobody ever stopped it.
type Board struct {
	Self           string
	ConversationID string

	mu   sync.Mutex
	rows map[string]models.LiveLocation
}

func NewBoard(self, conversationID string) *Board {
	return &Board{Self: self, ConversationID: conversationID, rows: make(map[string]models.LiveLocation)}
}

// Observe records loc. A row that stopped sharing clears the marker at once.
// A row older than the one held is a redelivery and is dropped; stopped rows
// are kept so a late position cannot bring the marker back.
func (b *Board) Observe(loc models.LiveLocation) {
	if loc.UserID == b.Self || loc.ConversationID != b.ConversationID {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.rows[loc.UserID]; ok && !loc.UpdatedAt.IsZero() && loc.UpdatedAt.Before(cur.UpdatedAt) {
		return
	}
	if !loc.IsSharing && loc.UpdatedAt.IsZero() {
		// An untimed stop keeps the held timestamp for later comparisons.
		if cur, ok := b.rows[loc.UserID]; ok {
			loc.UpdatedAt = cur.UpdatedAt
		}
	}
	b.rows[loc.UserID] = loc
}

func (b *Board) Apply(change models.Change) error {
	if change.Table != models.TableLiveLocations || change.ConversationID != b.ConversationID {
		return nil
	}
	var loc models.LiveLocation
	if err := json.Unmarshal(change.Record, &loc); err != nil {
		return fmt.Errorf("decode live location change: %w", err)
	}
	if change.Op == models.OpDelete {
		loc.IsSharing = false
	}
	b.Observe(loc)
	return nil
}

// Live returns the markers to show at now, ordered by user.
func (b *Board) Live(now time.Time) []models.LiveLocation {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.LiveLocation, 0, len(b.rows))
	for _, loc := range b.rows {
		if loc.IsLive(now) {
			out = append(out, loc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (b *Board) Get(userID string, now time.Time) (models.LiveLocation, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	loc, ok := b.rows[userID]
	if !ok || !loc.IsLive(now) {
		return models.LiveLocation{}, false
	}
	return loc, true
}
