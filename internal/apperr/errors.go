// Package apperr defines the error kinds shared by the realtime subsystem.
// Callers wrap a kind with context (fmt.Errorf("...: %w", apperr.ErrForbidden))
// and classify with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized means the caller credential is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the caller is authenticated but not permitted.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput covers malformed or oversized payloads and bad identity tokens.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound means no matching conversation, session or message row exists.
	ErrNotFound = errors.New("not found")
	// ErrUpstream wraps failures of the store or the push collaborator.
	ErrUpstream = errors.New("upstream failure")
	// ErrDeviceUnavailable covers geolocation denied, unavailable or timed out.
	ErrDeviceUnavailable = errors.New("device unavailable")
)

// Invalid returns an ErrInvalidInput carrying a reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Upstream wraps err as an ErrUpstream. A nil err stays nil and errors that
// already carry a kind are returned unchanged.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}

// Classified reports whether err already carries one of the kinds above.
func Classified(err error) bool {
	for _, kind := range []error{ErrUnauthorized, ErrForbidden, ErrInvalidInput, ErrNotFound, ErrUpstream, ErrDeviceUnavailable} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// HTTPStatus maps an error kind to the status code the API responds with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDeviceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to show a client. Only input errors keep
// their detail.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return err.Error()
	case errors.Is(err, ErrUnauthorized):
		return ErrUnauthorized.Error()
	case errors.Is(err, ErrForbidden):
		return ErrForbidden.Error()
	case errors.Is(err, ErrNotFound):
		return ErrNotFound.Error()
	case errors.Is(err, ErrDeviceUnavailable):
		return ErrDeviceUnavailable.Error()
	case errors.Is(err, ErrUpstream):
		return ErrUpstream.Error()
	default:
		return "internal error"
	}
}
