// Package geo is the device geolocation port: a one-shot fix and a
// cancellable continuous watch.
package geo

import (
	"context"
	"fmt"
	"time"

	"givebox/backend/internal/apperr"
)

type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

var (
	ErrPermissionDenied = fmt.Errorf("geolocation permission denied: %w", apperr.ErrDeviceUnavailable)
	ErrUnavailable      = fmt.Errorf("geolocation unavailable: %w", apperr.ErrDeviceUnavailable)
	ErrTimeout          = fmt.Errorf("geolocation timed out: %w", apperr.ErrDeviceUnavailable)
)

type Provider interface {
	CurrentPosition(ctx context.Context) (Position, error)
	Watch(ctx context.Context) (Watch, error)
}

// Watch is a running continuous acquisition. Positions is closed once the
// watch stops. Stop must be called by the owner and is idempotent.
type Watch interface {
	Positions() <-chan Position
	Stop()
}

// CheckCoordinates rejects positions outside WGS84 bounds.
func CheckCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return apperr.Invalid("latitude %v out of range", lat)
	}
	if lng < -180 || lng > 180 {
		return apperr.Invalid("longitude %v out of range", lng)
	}
	return nil
}
