// Package notify delivers user notifications: a persisted row, a realtime
// publish and optional external channels. Delivery is fire-and-forget.
package notify

import (
	"context"
	"sync"

	"hostelgrievance/backend/internal/models"

	"github.com/sirupsen/logrus"
)

type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	PublishNotification(ctx context.Context, n *models.Notification) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Channel delivers a stored notification outside the application, e.g. Telegram.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, recipient *models.User, n *models.Notification) error
}

type DropCounter interface {
	ObserveDropped(kind string)
}

// Sink is the notification sink used by the lifecycle services.
type Sink struct {
	store    Store
	channels []Channel
	log      logrus.FieldLogger
	dropped  DropCounter
	wg       sync.WaitGroup
}

func NewSink(store Store, log logrus.FieldLogger, dropped DropCounter, channels ...Channel) *Sink {
	return &Sink{store: store, channels: channels, log: log, dropped: dropped}
}

// Enqueue stores a notification for userID and fans it out. It never fails the
// caller. complaintID may be empty.
func (s *Sink) Enqueue(ctx context.Context, userID, complaintID, message string) {
	n := &models.Notification{UserID: userID, Message: message}
	if complaintID != "" {
		n.ComplaintID = &complaintID
	}
	entry := s.log.WithFields(logrus.Fields{"user_id": userID, "complaint_id": complaintID})

	if err := s.store.CreateNotification(ctx, n); err != nil {
		entry.WithError(err).Error("could not store notification")
		s.drop("notification")
		return
	}
	if err := s.store.PublishNotification(ctx, n); err != nil {
		entry.WithError(err).Warn("could not publish notification")
		s.drop("publish")
	}

	if len(s.channels) == 0 {
		return
	}
	// external channels outlive the request that triggered them
	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deliver(bg, entry, n)
	}()
}

func (s *Sink) deliver(ctx context.Context, entry *logrus.Entry, n *models.Notification) {
	recipient, err := s.store.GetUserByID(ctx, n.UserID)
	if err != nil {
		entry.WithError(err).Warn("could not load notification recipient")
		s.drop("channel")
		return
	}
	for _, ch := range s.channels {
		if err := ch.Deliver(ctx, recipient, n); err != nil {
			entry.WithError(err).WithField("channel", ch.Name()).Warn("could not deliver notification")
			s.drop("channel")
		}
	}
}

// Wait blocks until in-flight channel deliveries finish.
func (s *Sink) Wait() {
	s.wg.Wait()
}

func (s *Sink) drop(kind string) {
	if s.dropped != nil {
		s.dropped.ObserveDropped(kind)
	}
}
