// Package notify fans events out to in-app notification records and to push
// delivery, gated by relationships and recipient preferences.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/config"
	"givebox/backend/internal/logger"
	"givebox/backend/internal/models"
	"givebox/backend/internal/push"
	"givebox/backend/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const sendConcurrency = 8

type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetPreferences(ctx context.Context, userIDs []string) (map[string]models.NotificationPreference, error)
	ListPushRegistrations(ctx context.Context, userIDs []string) ([]models.PushRegistration, error)
	DeletePushRegistration(ctx context.Context, id string) error
}

type Authorizer interface {
	Authorize(ctx context.Context, callerID string, targetIDs []string) ([]string, error)
}

// Request describes one event for one recipient.
type Request struct {
	RecipientID      string
	Title            string
	Body             string
	Type             string
	RelatedListingID *string
	RelatedRequestID *string
	SendPush         bool
}

// PushRequest is a direct push to several recipients.
type PushRequest struct {
	RecipientIDs []string
	Title        string
	Body         string
	URL          string
	Type         string
}

// Result reports a push fan-out. Partial failure is still Success.
type Result struct {
	Success    bool `json:"success"`
	Sent       int  `json:"sent"`
	Failed     int  `json:"failed"`
	Authorized int  `json:"authorized"`
	Total      int  `json:"total"`
}

// Outcome is what Notify produced. Notification is nil when the record could
// not be written; Push is nil when no push was requested.
type Outcome struct {
	Notification *models.Notification `json:"notification,omitempty"`
	Push         *Result              `json:"push,omitempty"`
}

type Dispatcher struct {
	Store  Store
	Gate   Authorizer
	Sender push.Sender
	AppURL string
	Now    func() time.Time
}

func NewDispatcher(store Store, gate Authorizer, sender push.Sender, appURL string) *Dispatcher {
	return &Dispatcher{
		Store:  store,
		Gate:   gate,
		Sender: sender,
		AppURL: strings.TrimRight(appURL, "/"),
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// Notify records an in-app notification for the recipient and, if asked,
// pushes it. The record is best-effort: an insert failure is logged and the
// push still goes out.
func (d *Dispatcher) Notify(ctx context.Context, callerID string, req Request) (*Outcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "notify.Notify")
	defer span.End()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		UserID:    logger.Ptr(callerID),
		Component: "givebox.notify.dispatcher",
	})

	if strings.TrimSpace(req.Title) == "" {
		return nil, apperr.Invalid("title is required")
	}
	if !config.NotificationTypes[req.Type] {
		return nil, apperr.Invalid("unknown notification type %q", req.Type)
	}
	if _, err := d.Gate.Authorize(ctx, callerID, []string{req.RecipientID}); err != nil {
		return nil, err
	}

	out := &Outcome{}
	n := &models.Notification{
		UserID:           req.RecipientID,
		Title:            req.Title,
		Body:             req.Body,
		Type:             req.Type,
		RelatedListingID: req.RelatedListingID,
		RelatedRequestID: req.RelatedRequestID,
		CreatedAt:        d.Now(),
	}
	if err := d.Store.CreateNotification(ctx, n); err != nil {
		slog.WarnContext(ctx, "notification record not created", "type", req.Type, "error", err)
	} else {
		out.Notification = n
	}

	if !req.SendPush {
		return out, nil
	}
	msg := push.Message{Title: req.Title, Body: req.Body, URL: d.linkFor(req), Type: req.Type}
	recipients := []string{req.RecipientID}
	if err := validatePush(recipients, msg); err != nil {
		return out, err
	}
	res, err := d.fanOut(ctx, recipients, len(recipients), msg)
	if err != nil {
		return out, err
	}
	out.Push = res
	return out, nil
}

// Push delivers msg to every authorized recipient. It fails Forbidden when
// the gate lets nobody through.
func (d *Dispatcher) Push(ctx context.Context, callerID string, req PushRequest) (*Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "notify.Push")
	defer span.End()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		UserID:         logger.Ptr(callerID),
		RecipientCount: logger.Ptr(len(req.RecipientIDs)),
		Component:      "givebox.notify.dispatcher",
	})

	msg := push.Message{Title: req.Title, Body: req.Body, URL: req.URL, Type: req.Type}
	if err := validatePush(req.RecipientIDs, msg); err != nil {
		return nil, err
	}
	authorized, err := d.Gate.Authorize(ctx, callerID, req.RecipientIDs)
	if err != nil {
		return nil, err
	}
	res, err := d.fanOut(ctx, authorized, len(req.RecipientIDs), msg)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("push.sent", res.Sent), attribute.Int("push.failed", res.Failed))
	return res, nil
}

func validatePush(recipients []string, msg push.Message) error {
	if len(recipients) == 0 {
		return apperr.Invalid("at least one recipient is required")
	}
	if len(recipients) > config.MaxTargets {
		return apperr.Invalid("at most %d recipients allowed", config.MaxTargets)
	}
	if strings.TrimSpace(msg.Title) == "" {
		return apperr.Invalid("title is required")
	}
	if n := utf8.RuneCountInString(msg.Title); n > config.MaxPushTitleLen {
		return apperr.Invalid("title is %d characters, limit %d", n, config.MaxPushTitleLen)
	}
	if n := utf8.RuneCountInString(msg.Body); n > config.MaxPushBodyLen {
		return apperr.Invalid("body is %d characters, limit %d", n, config.MaxPushBodyLen)
	}
	return nil
}

// fanOut sends msg to the registrations of authorized recipients whose
// preferences allow it. Dead endpoints are deleted; no single failure stops
// the others.
func (d *Dispatcher) fanOut(ctx context.Context, authorized []string, total int, msg push.Message) (*Result, error) {
	res := &Result{Success: true, Authorized: len(authorized), Total: total}

	prefs, err := d.Store.GetPreferences(ctx, authorized)
	if err != nil {
		return nil, err
	}
	allowed := make([]string, 0, len(authorized))
	for _, id := range authorized {
		if prefs[id].AllowsPush(msg.Type) {
			allowed = append(allowed, id)
		}
	}
	if len(allowed) == 0 {
		return res, nil
	}

	regs, err := d.Store.ListPushRegistrations(ctx, allowed)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sendConcurrency)
	for _, reg := range regs {
		g.Go(func() error {
			err := d.Sender.Send(gctx, reg, msg)
			mu.Lock()
			if err == nil {
				res.Sent++
			} else {
				res.Failed++
			}
			mu.Unlock()
			if err != nil {
				d.handleFailure(ctx, reg, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	slog.InfoContext(ctx, "push fan-out done", "sent", res.Sent, "failed", res.Failed, "authorized", res.Authorized, "total", res.Total)
	return res, nil
}

func (d *Dispatcher) handleFailure(ctx context.Context, reg models.PushRegistration, err error) {
	if !errors.Is(err, push.ErrGone) {
		slog.WarnContext(ctx, "push delivery failed", "channel", reg.Channel, "registration_id", reg.ID, "error", err)
		return
	}
	slog.InfoContext(ctx, "push endpoint gone, deleting registration", "channel", reg.Channel, "registration_id", reg.ID)
	if derr := d.Store.DeletePushRegistration(ctx, reg.ID); derr != nil {
		slog.WarnContext(ctx, "registration cleanup failed", "registration_id", reg.ID, "error", derr)
	}
}

func (d *Dispatcher) linkFor(req Request) string {
	if d.AppURL == "" {
		return ""
	}
	if req.RelatedRequestID != nil {
		return d.AppURL + "/conversations/" + *req.RelatedRequestID
	}
	if req.RelatedListingID != nil {
		return d.AppURL + "/listings/" + *req.RelatedListingID
	}
	return d.AppURL + "/notifications"
}
