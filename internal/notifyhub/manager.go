// Package notifyhub pushes new notifications to connected users in real time.
// Notifications arrive over Redis pub/sub, so any API replica can deliver a
// notification stored by another one.
package notifyhub

import (
	"context"
	"sync"

	"hostelgrievance/backend/internal/models"

	"github.com/sirupsen/logrus"
)

// Hub tracks live connections per user and fans notifications out to them.
type Hub struct {
	RegisterCh   chan Client
	UnregisterCh chan Client
	PubSubCh     chan models.Notification

	mu      sync.RWMutex
	clients map[string]map[Client]struct{}
	log     logrus.FieldLogger
	done    chan struct{}
}

func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		PubSubCh:     make(chan models.Notification, 64),
		clients:      make(map[string]map[Client]struct{}),
		log:          log,
		done:         make(chan struct{}),
	}
}

// Register hands c to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(c Client) bool {
	select {
	case h.RegisterCh <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c. It does not block after the hub has stopped.
func (h *Hub) Unregister(c Client) {
	select {
	case h.UnregisterCh <- c:
	case <-h.done:
	}
}

// Run dispatches until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.RegisterCh:
			h.register(c)

		case c := <-h.UnregisterCh:
			h.unregister(c)

		case n := <-h.PubSubCh:
			h.dispatch(n)

		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		}
	}
}

// Connected returns how many live connections userID has.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) register(c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.GetUserID()]
	if !ok {
		set = make(map[Client]struct{})
		h.clients[c.GetUserID()] = set
	}
	set[c] = struct{}{}
	h.log.WithField("user_id", c.GetUserID()).Debug("notification stream connected")
}

func (h *Hub) unregister(c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(c)
}

// remove must be called with mu held.
func (h *Hub) remove(c Client) {
	set, ok := h.clients[c.GetUserID()]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.GetUserID())
	}
	c.Close()
	h.log.WithField("user_id", c.GetUserID()).Debug("notification stream disconnected")
}

func (h *Hub) dispatch(n models.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[n.UserID] {
		select {
		case c.GetSendChannel() <- n:
		default:
			// slow consumer: drop the connection, the client refetches on reconnect
			h.log.WithField("user_id", n.UserID).Warn("notification stream backed up, disconnecting")
			h.remove(c)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for c := range set {
			c.Close()
		}
	}
	h.clients = make(map[string]map[Client]struct{})
}
