// Package gate decides who may contact whom. Relationships between listing
// owners and requesters are the only input; there is no separate ACL.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"givebox/backend/internal/apperr"
	"givebox/backend/internal/config"
	"givebox/backend/internal/logger"
	"givebox/backend/internal/models"

	"github.com/google/uuid"
)

const (
	VariantNotify = "notify"
	VariantChat   = "chat"
)

// Store is the slice of storage the gate reads and audits to.
type Store interface {
	ConnectedTargets(ctx context.Context, callerID string, targetIDs []string) ([]string, error)
	GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error)
	SaveGateAudit(ctx context.Context, audit *models.GateAudit) error
}

type Gate struct {
	Store        Store
	AuditTimeout time.Duration
	Now          func() time.Time

	mu     sync.Mutex
	closed bool
	audits sync.WaitGroup
}

func New(store Store, auditTimeout time.Duration) *Gate {
	if auditTimeout <= 0 {
		auditTimeout = config.DefaultAuditTimeout
	}
	return &Gate{
		Store:        store,
		AuditTimeout: auditTimeout,
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

// Authorize returns the targets callerID may notify, in request order. A
// target passes when it is the caller or when a request links the two in
// either direction, whatever its status. No surviving target is Forbidden.
func (g *Gate) Authorize(ctx context.Context, callerID string, targetIDs []string) ([]string, error) {
	if callerID == "" {
		return nil, apperr.ErrUnauthorized
	}
	targets, err := validateTargets(targetIDs)
	if err != nil {
		return nil, err
	}

	others := make([]string, 0, len(targets))
	for _, t := range targets {
		if t != callerID {
			others = append(others, t)
		}
	}

	connected := map[string]bool{callerID: true}
	if len(others) > 0 {
		ids, err := g.Store.ConnectedTargets(ctx, callerID, others)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			connected[id] = true
		}
	}

	authorized := make([]string, 0, len(targets))
	for _, t := range targets {
		if connected[t] {
			authorized = append(authorized, t)
		}
	}

	g.audit(ctx, callerID, VariantNotify, len(targets), authorized)

	if len(authorized) == 0 {
		return nil, fmt.Errorf("no authorized targets: %w", apperr.ErrForbidden)
	}
	return authorized, nil
}

// Conversation resolves conversationID for a chat action by callerID. The
// caller must be a participant and the request must be accepted.
func (g *Gate) Conversation(ctx context.Context, callerID, conversationID string) (*models.Conversation, error) {
	if callerID == "" {
		return nil, apperr.ErrUnauthorized
	}
	if _, err := uuid.Parse(conversationID); err != nil {
		return nil, apperr.Invalid("malformed conversation id %q", conversationID)
	}

	conv, err := g.Store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	allowed := conv.HasParticipant(callerID) && conv.ChatEligible()
	var authorized []string
	if allowed {
		authorized = []string{conv.Peer(callerID)}
	}
	g.audit(ctx, callerID, VariantChat, 1, authorized)

	if !conv.HasParticipant(callerID) {
		return nil, fmt.Errorf("not a participant of %s: %w", conversationID, apperr.ErrForbidden)
	}
	if !conv.ChatEligible() {
		return nil, fmt.Errorf("conversation %s is %s: %w", conversationID, conv.Status, apperr.ErrForbidden)
	}
	return conv, nil
}

// CanSubscribe applies the chat check to a live subscription.
func (g *Gate) CanSubscribe(ctx context.Context, userID, conversationID string) error {
	_, err := g.Conversation(ctx, userID, conversationID)
	return err
}

// Wait blocks until pending audit writes have finished. Decisions made while
// it waits start their audit after it returns.
func (g *Gate) Wait() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.audits.Wait()
}

// Close stops auditing and waits for the pending writes. Decisions are still
// made after Close, they are just not recorded.
func (g *Gate) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.audits.Wait()
}

func validateTargets(targetIDs []string) ([]string, error) {
	if len(targetIDs) == 0 {
		return nil, apperr.Invalid("at least one target is required")
	}
	if len(targetIDs) > config.MaxTargets {
		return nil, apperr.Invalid("at most %d targets allowed, got %d", config.MaxTargets, len(targetIDs))
	}
	seen := make(map[string]bool, len(targetIDs))
	targets := make([]string, 0, len(targetIDs))
	for _, id := range targetIDs {
		if _, err := uuid.Parse(id); err != nil {
			return nil, apperr.Invalid("malformed target id %q", id)
		}
		if !seen[id] {
			seen[id] = true
			targets = append(targets, id)
		}
	}
	return targets, nil
}

// audit writes the decision in the background. It never blocks or fails the
// caller, and it outlives the request context.
func (g *Gate) audit(ctx context.Context, callerID, variant string, requested int, authorized []string) {
	entry := &models.GateAudit{
		CallerID:      callerID,
		Variant:       variant,
		Requested:     requested,
		Authorized:    len(authorized),
		AuthorizedIDs: models.StringList(authorized),
		CreatedAt:     g.Now(),
	}
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		slog.DebugContext(ctx, "gate closed, audit dropped", "variant", variant, "caller_id", callerID)
		return
	}
	g.audits.Add(1)
	g.mu.Unlock()
	go func() {
		defer g.audits.Done()
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.AuditTimeout)
		defer cancel()
		actx = logger.WithLogFields(actx, logger.LogFields{Component: "givebox.gate"})
		if err := g.Store.SaveGateAudit(actx, entry); err != nil {
			slog.WarnContext(actx, "gate audit write failed", "variant", variant, "error", err)
		}
	}()
}
