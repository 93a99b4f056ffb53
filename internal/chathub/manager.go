package chathub

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"givebox/backend/internal/apperr"
)

// Authorizer decides whether a user may follow a conversation.
type Authorizer interface {
	CanSubscribe(ctx context.Context, userID, conversationID string) error
}

// PresenceSink records a user's presence in a conversation.
type PresenceSink interface {
	SetOnline(ctx context.Context, userID, conversationID string, online bool) error
}

const offlineTimeout = 5 * time.Second

type clientState struct {
	subs map[string]*Subscription
	wg   sync.WaitGroup
}

// ManagerService tracks live clients and the conversation subscriptions they
// hold. Every subscription is released when its client goes away.
type ManagerService struct {
	Feed       Feed
	Authorizer Authorizer
	Presence   PresenceSink

	mu       sync.Mutex
	clients  map[Client]*clientState
	shutdown bool
}

func NewManagerService(feed Feed, auth Authorizer, presence PresenceSink) *ManagerService {
	return &ManagerService{
		Feed:       feed,
		Authorizer: auth,
		Presence:   presence,
		clients:    make(map[Client]*clientState),
	}
}

// Register starts tracking c. After Shutdown, c is closed instead.
func (m *ManagerService) Register(c Client) {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		c.Close()
		return
	}
	if _, ok := m.clients[c]; !ok {
		m.clients[c] = &clientState{subs: make(map[string]*Subscription)}
	}
	m.mu.Unlock()
	slog.Debug("client registered", "user_id", c.GetUserID())
}

// Shutdown unregisters every client, which marks their users offline and
// closes their connections. It returns once all of them are released.
func (m *ManagerService) Shutdown() {
	m.mu.Lock()
	m.shutdown = true
	clients := make([]Client, 0, len(m.clients))
	for c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Unregister(c)
		}()
	}
	wg.Wait()
	slog.Info("chat hub shut down", "clients", len(clients))
}

// Unregister releases every subscription of c, marks the user offline in
// those conversations and closes c. It is safe to call more than once.
func (m *ManagerService) Unregister(c Client) {
	m.mu.Lock()
	st, ok := m.clients[c]
	delete(m.clients, c)
	m.mu.Unlock()

	if ok {
		for _, sub := range st.subs {
			sub.Close()
		}
		st.wg.Wait()

		ctx, cancel := context.WithTimeout(context.Background(), offlineTimeout)
		for convID := range st.subs {
			m.setOnline(ctx, c.GetUserID(), convID, false)
		}
		cancel()
		slog.Debug("client unregistered", "user_id", c.GetUserID(), "subscriptions", len(st.subs))
	}
	c.Close()
}

// Handle executes one command received from c.
func (m *ManagerService) Handle(ctx context.Context, c Client, cmd ClientCommand) {
	switch cmd.Action {
	case ActionSubscribe:
		if err := m.Subscribe(ctx, c, cmd.ConversationID); err != nil {
			c.Deliver(ServerFrame{Type: FrameError, ConversationID: cmd.ConversationID, Error: apperr.PublicMessage(err)})
			return
		}
		c.Deliver(ServerFrame{Type: FrameSubscribed, ConversationID: cmd.ConversationID})
	case ActionUnsubscribe:
		m.Unsubscribe(ctx, c, cmd.ConversationID)
		c.Deliver(ServerFrame{Type: FrameUnsubscribed, ConversationID: cmd.ConversationID})
	case ActionHeartbeat:
		for _, convID := range m.Subscriptions(c) {
			m.setOnline(ctx, c.GetUserID(), convID, true)
		}
	default:
		c.Deliver(ServerFrame{Type: FrameError, Error: apperr.PublicMessage(apperr.Invalid("unknown action %q", cmd.Action))})
	}
}

// Subscribe starts forwarding the changes of conversationID to c.
// Subscribing twice to the same conversation is a no-op.
func (m *ManagerService) Subscribe(ctx context.Context, c Client, conversationID string) error {
	if conversationID == "" {
		return apperr.Invalid("conversation_id is required")
	}
	if m.isSubscribed(c, conversationID) {
		return nil
	}
	if m.Authorizer != nil {
		if err := m.Authorizer.CanSubscribe(ctx, c.GetUserID(), conversationID); err != nil {
			return err
		}
	}

	sub, err := m.Feed.Subscribe(ctx, ConversationTopics(conversationID)...)
	if err != nil {
		return err
	}

	m.mu.Lock()
	st, ok := m.clients[c]
	if !ok {
		m.mu.Unlock()
		sub.Close()
		return apperr.Invalid("connection closed")
	}
	if _, dup := st.subs[conversationID]; dup {
		m.mu.Unlock()
		sub.Close()
		return nil
	}
	st.subs[conversationID] = sub
	st.wg.Add(1)
	m.mu.Unlock()

	go m.forward(c, conversationID, sub, &st.wg)
	m.setOnline(ctx, c.GetUserID(), conversationID, true)
	return nil
}

func (m *ManagerService) Unsubscribe(ctx context.Context, c Client, conversationID string) {
	m.mu.Lock()
	st, ok := m.clients[c]
	var sub *Subscription
	if ok {
		sub = st.subs[conversationID]
		delete(st.subs, conversationID)
	}
	m.mu.Unlock()

	if sub != nil {
		sub.Close()
		m.setOnline(ctx, c.GetUserID(), conversationID, false)
	}
}

// Subscriptions lists the conversations c currently follows.
func (m *ManagerService) Subscriptions(c Client) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.clients[c]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(st.subs))
	for id := range st.subs {
		ids = append(ids, id)
	}
	return ids
}

func (m *ManagerService) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

func (m *ManagerService) isSubscribed(c Client, conversationID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.clients[c]
	return ok && st.subs[conversationID] != nil
}

func (m *ManagerService) forward(c Client, conversationID string, sub *Subscription, wg *sync.WaitGroup) {
	defer wg.Done()
	for change := range sub.Events() {
		change := change
		if !c.Deliver(ServerFrame{Type: FrameChange, ConversationID: conversationID, Change: &change}) {
			slog.Warn("client send buffer full, dropping change", "user_id", c.GetUserID(), "conversation_id", conversationID)
		}
	}
}

func (m *ManagerService) setOnline(ctx context.Context, userID, conversationID string, online bool) {
	if m.Presence == nil {
		return
	}
	if err := m.Presence.SetOnline(ctx, userID, conversationID, online); err != nil {
		slog.WarnContext(ctx, "presence update failed", "user_id", userID, "conversation_id", conversationID, "online", online, "error", err)
	}
}
