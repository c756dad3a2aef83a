// Package history appends the complaint audit trail.
package history

import (
	"context"

	"hostelgrievance/backend/internal/models"

	"github.com/sirupsen/logrus"
)

type Appender interface {
	AppendHistory(ctx context.Context, entry *models.HistoryEntry) error
}

// DropCounter counts swallowed writes.
type DropCounter interface {
	ObserveDropped(kind string)
}

// Logger records transitions. A failed append is logged and dropped because the
// transition it describes is already committed.
type Logger struct {
	store   Appender
	log     logrus.FieldLogger
	dropped DropCounter
}

func NewLogger(store Appender, log logrus.FieldLogger, dropped DropCounter) *Logger {
	return &Logger{store: store, log: log, dropped: dropped}
}

// Record appends one entry. actor is empty for the scheduler.
func (l *Logger) Record(ctx context.Context, complaintID, action, actor string, from, to models.ComplaintStatus, notes string) {
	entry := &models.HistoryEntry{
		ComplaintID: complaintID,
		Action:      action,
		FromStatus:  from,
		ToStatus:    to,
		Notes:       notes,
	}
	if actor != "" {
		entry.PerformedBy = &actor
	}

	if err := l.store.AppendHistory(ctx, entry); err != nil {
		l.log.WithError(err).WithFields(logrus.Fields{
			"complaint_id": complaintID,
			"action":       action,
		}).Warn("could not append complaint history")
		if l.dropped != nil {
			l.dropped.ObserveDropped("history")
		}
	}
}
