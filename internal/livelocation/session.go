package livelocation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/geo"
	"givebox/backend/internal/models"
)

// Remote is the server side of a sharing session as seen by a client.
type Remote interface {
	StartLocation(ctx context.Context, conversationID string, lat, lng float64, duration time.Duration) (*models.LiveLocation, error)
	UpdateLocation(ctx context.Context, conversationID string, lat, lng float64) error
	StopLocation(ctx context.Context, conversationID string) error
}

type State int

const (
	StateOff State = iota
	StateSharing
)

func (s State) String() string {
	if s == StateSharing {
		return "sharing"
	}
	return "off"
}

const releaseTimeout = 5 * time.Second

// Session drives one user's sharing in one conversation from a device
// provider. Whatever happens, a stopped or expired session holds no watch.
type Session struct {
	ConversationID string
	Remote         Remote
	Provider       geo.Provider
	Now            func() time.Time
	// OnError receives failures of background position updates.
	OnError func(error)

	mu        sync.Mutex
	state     State
	expiresAt time.Time
	watch     geo.Watch
	done      chan struct{}
}

func NewSession(conversationID string, remote Remote, provider geo.Provider) *Session {
	return &Session{
		ConversationID: conversationID,
		Remote:         remote,
		Provider:       provider,
		Now:            func() time.Time { return time.Now().UTC() },
	}
}

// Start acquires one fix, opens the server session and begins continuous
// acquisition. On any failure the session stays off and nothing is retried.
func (s *Session) Start(ctx context.Context, duration time.Duration) error {
	if _, err := ShareDuration(duration); err != nil {
		return err
	}
	// A new start replaces the running one.
	s.release()

	pos, err := s.Provider.CurrentPosition(ctx)
	if err != nil {
		return fmt.Errorf("live location not started: %w", deviceErr(err))
	}
	loc, err := s.Remote.StartLocation(ctx, s.ConversationID, pos.Latitude, pos.Longitude, duration)
	if err != nil {
		return fmt.Errorf("live location not started: %w", err)
	}

	watch, err := s.Provider.Watch(context.Background())
	if err != nil {
		s.stopRemote()
		return fmt.Errorf("live location not started: %w", deviceErr(err))
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.state = StateSharing
	s.expiresAt = loc.ExpiresAt
	s.watch = watch
	s.done = done
	s.mu.Unlock()

	go s.pump(watch, done, loc.ExpiresAt)
	return nil
}

// Stop ends sharing. The watch is released before the server is told, so a
// failed write still leaves no acquisition running. Stopping twice is a no-op.
func (s *Session) Stop(ctx context.Context) error {
	if !s.release() {
		return nil
	}
	return s.Remote.StopLocation(ctx, s.ConversationID)
}

// Close is Stop for teardown paths that have no context.
func (s *Session) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		slog.Warn("stop live location on close failed", "conversation_id", s.ConversationID, "error", err)
	}
}

// State reports the local state, applying expiry lazily.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSharing && !s.Now().Before(s.expiresAt) {
		return StateOff
	}
	return s.state
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// release drops the watch and reports whether a session was running.
func (s *Session) release() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSharing {
		return false
	}
	s.watch.Stop()
	close(s.done)
	s.watch = nil
	s.done = nil
	s.state = StateOff
	return true
}

// releaseIf releases only if watch is still the current one.
func (s *Session) releaseIf(watch geo.Watch) bool {
	s.mu.Lock()
	current := s.watch == watch
	s.mu.Unlock()
	return current && s.release()
}

func (s *Session) pump(watch geo.Watch, done chan struct{}, expiresAt time.Time) {
	expiry := time.NewTimer(expiresAt.Sub(s.Now()))
	defer expiry.Stop()

	for {
		select {
		case <-done:
			return
		case <-expiry.C:
			s.expire(watch)
			return
		case pos, ok := <-watch.Positions():
			if !ok {
				s.expire(watch)
				return
			}
			if !s.Now().Before(expiresAt) {
				s.expire(watch)
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			err := s.Remote.UpdateLocation(ctx, s.ConversationID, pos.Latitude, pos.Longitude)
			cancel()
			if errors.Is(err, apperr.ErrNotFound) {
				// Stopped or expired on the server.
				s.releaseIf(watch)
				return
			}
			if err != nil {
				s.report(err)
			}
		}
	}
}

func (s *Session) expire(watch geo.Watch) {
	if s.releaseIf(watch) {
		s.stopRemote()
	}
}

func (s *Session) stopRemote() {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := s.Remote.StopLocation(ctx, s.ConversationID); err != nil {
		s.report(err)
	}
}

func (s *Session) report(err error) {
	if s.OnError != nil {
		s.OnError(err)
		return
	}
	slog.Warn("live location update failed", "conversation_id", s.ConversationID, "error", err)
}

func deviceErr(err error) error {
	if errors.Is(err, apperr.ErrDeviceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", apperr.ErrDeviceUnavailable, err)
}
