package notifyhub

import (
	"context"
	"encoding/json"

	"hostelgrievance/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// Subscriber opens the pattern subscription over every user's notification channel.
type Subscriber interface {
	SubscribeNotifications(ctx context.Context) *redis.PubSub
}

// StartPubSubListener forwards published notifications into the hub until ctx
// is done.
func (h *Hub) StartPubSubListener(ctx context.Context, sub Subscriber) {
	pubsub := sub.SubscribeNotifications(ctx)
	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				h.Forward(ctx, msg.Payload)
			}
		}
	}()
}

// Forward decodes one published payload and hands it to the dispatcher.
func (h *Hub) Forward(ctx context.Context, payload string) {
	var n models.Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		h.log.WithError(err).Warn("could not decode published notification")
		return
	}
	if n.UserID == "" {
		return
	}
	select {
	case h.PubSubCh <- n:
	case <-ctx.Done():
	}
}
