// Package escalation holds the two sweeps that push stalled complaints to the
// warden. Scheduling is the caller's job; each sweep is safe to run concurrently
// with itself because every row is claimed with a conditional update first.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hostelgrievance/backend/internal/config"
	"hostelgrievance/backend/internal/localization"
	"hostelgrievance/backend/internal/models"
	"hostelgrievance/backend/internal/storage"

	"github.com/sirupsen/logrus"
)

// Sweep names, used in logs, metrics and the admin CLI.
const (
	SweepDeadline   = "deadline"
	SweepUnassigned = "unassigned"
)

// Notifier tells wardens about unassigned escalations.
type Notifier interface {
	Enqueue(ctx context.Context, userID, complaintID, message string)
}

// Recorder appends the history entry for each escalated complaint.
type Recorder interface {
	Record(ctx context.Context, complaintID, action, actor string, from, to models.ComplaintStatus, notes string)
}

// SweepObserver counts sweep runs and escalations.
type SweepObserver interface {
	ObserveSweep(sweep string, escalated int, err error)
}

// Scheduler runs the escalation sweeps.
type Scheduler struct {
	Storage  storage.Storage
	History  Recorder
	Notifier Notifier
	Messages *localization.Localizer
	Metrics  SweepObserver
	Log      logrus.FieldLogger
	// Grace is how long a validated complaint may wait for assignment.
	Grace time.Duration
}

// NewScheduler builds a Scheduler. A non-positive grace falls back to
// config.DefaultUnassignedGrace.
func NewScheduler(s storage.Storage, history Recorder, notifier Notifier, metrics SweepObserver, log logrus.FieldLogger, grace time.Duration) *Scheduler {
	if grace <= 0 {
		grace = config.DefaultUnassignedGrace
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		Storage:  s,
		History:  history,
		Notifier: notifier,
		Messages: localization.Default(),
		Metrics:  metrics,
		Log:      log,
		Grace:    grace,
	}
}

// DeadlineSweep escalates assigned or in-progress complaints whose deadline is
// before now and returns how many it escalated.
func (s *Scheduler) DeadlineSweep(ctx context.Context, now time.Time) (int, error) {
	log := s.Log.WithField("sweep", SweepDeadline)
	candidates, err := s.Storage.FindOverdueComplaints(ctx, now)
	if err != nil {
		s.observe(SweepDeadline, 0, err)
		return 0, fmt.Errorf("find overdue complaints: %w", err)
	}

	var (
		escalated int
		errs      []error
	)
	for _, c := range candidates {
		updated, err := s.Storage.TransitionComplaint(ctx, storage.Transition{
			ComplaintID:   c.ID,
			From:          []models.ComplaintStatus{models.StatusAssigned, models.StatusInProgress},
			DeadlineUntil: &now,
			Updates:       escalateUpdates(now),
		})
		if err != nil {
			if !claimLost(err) {
				log.WithError(err).WithField("complaint_id", c.ID).Error("could not escalate overdue complaint")
				errs = append(errs, err)
			}
			continue
		}

		escalated++
		s.History.Record(ctx, c.ID, models.ActionAutoEscalatedDeadline, "", c.Status, updated.Status,
			s.Messages.GetString(localization.DefaultLanguage, "history.escalated.deadline"))
		log.WithField("complaint_id", c.ID).Info("complaint escalated: deadline missed")
	}

	err = errors.Join(errs...)
	s.observe(SweepDeadline, escalated, err)
	return escalated, err
}

// UnassignedSweep escalates validated complaints that have waited longer than the
// grace window without an assignee, notifying every warden of each one. A
// complaint that was escalated before is never picked again.
func (s *Scheduler) UnassignedSweep(ctx context.Context, now time.Time) (int, error) {
	log := s.Log.WithField("sweep", SweepUnassigned)
	cutoff := now.Add(-s.Grace)
	candidates, err := s.Storage.FindUnassignedComplaints(ctx, cutoff)
	if err != nil {
		s.observe(SweepUnassigned, 0, err)
		return 0, fmt.Errorf("find unassigned complaints: %w", err)
	}

	var (
		escalated int
		errs      []error
		wardens   []models.User
		looked    bool
	)
	grace := FormatWindow(s.Grace)
	for _, c := range candidates {
		updated, err := s.Storage.TransitionComplaint(ctx, storage.Transition{
			ComplaintID: c.ID,
			From:        []models.ComplaintStatus{models.StatusValidated},
			Unescalated: true,
			Updates:     escalateUpdates(now),
		})
		if err != nil {
			if !claimLost(err) {
				log.WithError(err).WithField("complaint_id", c.ID).Error("could not escalate unassigned complaint")
				errs = append(errs, err)
			}
			continue
		}

		escalated++
		s.History.Record(ctx, c.ID, models.ActionAutoEscalatedUnassigned, "", c.Status, updated.Status,
			s.Messages.Format(localization.DefaultLanguage, "history.escalated.unassigned", grace))
		log.WithField("complaint_id", c.ID).Info("complaint escalated: not assigned in time")

		if !looked {
			looked = true
			wardens, err = s.Storage.FindAdmins(ctx, []models.AdminRole{models.AdminRoleWarden}, "")
			if err != nil {
				log.WithError(err).Error("could not look up wardens; escalation notices dropped")
			}
		}
		msg := s.Messages.Format(localization.DefaultLanguage, "notify.escalation.unassigned", c.Title, grace)
		for _, w := range wardens {
			s.Notifier.Enqueue(ctx, w.ID, c.ID, msg)
		}
	}

	err = errors.Join(errs...)
	s.observe(SweepUnassigned, escalated, err)
	return escalated, err
}

// RunAll runs both sweeps once, the way the external timer invokes them.
func (s *Scheduler) RunAll(ctx context.Context, now time.Time) (deadline, unassigned int, err error) {
	deadline, derr := s.DeadlineSweep(ctx, now)
	unassigned, uerr := s.UnassignedSweep(ctx, now)
	return deadline, unassigned, errors.Join(derr, uerr)
}

func escalateUpdates(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"status":       models.StatusEscalated,
		"escalated_to": models.AdminRole(config.EscalationTarget),
		"escalated_at": now,
	}
}

// claimLost reports whether another writer moved the row first.
func claimLost(err error) bool {
	return errors.Is(err, storage.ErrStatusChanged) || errors.Is(err, storage.ErrNotFound)
}

func (s *Scheduler) observe(sweep string, escalated int, err error) {
	if s.Metrics != nil {
		s.Metrics.ObserveSweep(sweep, escalated, err)
	}
}

// FormatWindow renders a grace window for humans: whole days as "2 days",
// anything else as a Go duration.
func FormatWindow(d time.Duration) string {
	day := 24 * time.Hour
	switch {
	case d == day:
		return "1 day"
	case d > 0 && d%day == 0:
		return fmt.Sprintf("%d days", d/day)
	default:
		return d.String()
	}
}
