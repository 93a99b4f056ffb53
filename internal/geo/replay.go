package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Replay plays back a recorded track. CurrentPosition returns the first
// point; a watch emits the following points every Interval and then holds
// the last one. Err, when set, fails every call.
type Replay struct {
	Track    []Position
	Interval time.Duration
	Err      error

	active atomic.Int32
}

// Fixed is a provider that never moves.
func Fixed(lat, lng float64, interval time.Duration) *Replay {
	return &Replay{Track: []Position{{Latitude: lat, Longitude: lng}}, Interval: interval}
}

// LoadTrack reads a JSON array of positions.
func LoadTrack(r io.Reader, interval time.Duration) (*Replay, error) {
	var track []Position
	if err := json.NewDecoder(r).Decode(&track); err != nil {
		return nil, fmt.Errorf("decode track: %w", err)
	}
	if len(track) == 0 {
		return nil, ErrUnavailable
	}
	for _, p := range track {
		if err := CheckCoordinates(p.Latitude, p.Longitude); err != nil {
			return nil, err
		}
	}
	return &Replay{Track: track, Interval: interval}, nil
}

func (r *Replay) CurrentPosition(ctx context.Context) (Position, error) {
	if r.Err != nil {
		return Position{}, r.Err
	}
	if len(r.Track) == 0 {
		return Position{}, ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return Position{}, ErrTimeout
	}
	return stamp(r.Track[0]), nil
}

func (r *Replay) Watch(ctx context.Context) (Watch, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	if len(r.Track) == 0 {
		return nil, ErrUnavailable
	}
	interval := r.Interval
	if interval <= 0 {
		interval = time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &replayWatch{out: make(chan Position, 1), cancel: cancel}
	r.active.Add(1)

	go func() {
		defer r.active.Add(-1)
		defer close(w.out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		i := 1
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p := r.Track[len(r.Track)-1]
				if i < len(r.Track) {
					p = r.Track[i]
					i++
				}
				select {
				case w.out <- stamp(p):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return w, nil
}

// ActiveWatches is the number of watches not yet released.
func (r *Replay) ActiveWatches() int {
	return int(r.active.Load())
}

type replayWatch struct {
	out    chan Position
	cancel context.CancelFunc
	once   sync.Once
}

func (w *replayWatch) Positions() <-chan Position { return w.out }

func (w *replayWatch) Stop() { w.once.Do(w.cancel) }

func stamp(p Position) Position {
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	return p
}
