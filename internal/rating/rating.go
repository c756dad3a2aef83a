// Package rating records residents' ratings of the workers who completed their
// complaints and serves the worker performance views built on them.
package rating

import (
	"context"
	"errors"
	"strings"

	"hostelgrievance/backend/internal/apperror"
	"hostelgrievance/backend/internal/config"
	"hostelgrievance/backend/internal/models"
	"hostelgrievance/backend/internal/storage"

	"github.com/sirupsen/logrus"
)

// TransitionObserver counts accepted ratings.
type TransitionObserver interface {
	ObserveTransition(action string)
}

// Service rates workers and reports their performance.
type Service struct {
	Storage storage.Storage
	Metrics TransitionObserver
	Log     logrus.FieldLogger
}

func NewService(s storage.Storage, m TransitionObserver, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{Storage: s, Metrics: m, Log: log}
}

// RateInput is a resident's rating of the worker on one completed complaint.
type RateInput struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// Rate records the rating once and folds it into the worker's running average.
// It returns the worker with the updated aggregates.
func (s *Service) Rate(ctx context.Context, residentID, complaintID string, in RateInput) (*models.User, error) {
	if in.Rating < config.MinRating || in.Rating > config.MaxRating {
		return nil, apperror.Validation("rating must be between 1 and 5")
	}

	c, err := s.Storage.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, storage.Classify(err, "complaint")
	}
	if c.UserID != residentID {
		return nil, apperror.Forbidden("you can only rate work on your own complaints")
	}
	if c.Status != models.StatusCompleted {
		return nil, apperror.Conflict("can only rate completed tasks")
	}
	if c.WorkerRating != nil {
		return nil, apperror.Conflict("already rated")
	}
	if c.AssignedTo == nil || *c.AssignedTo == "" {
		return nil, apperror.Validation("no worker assigned")
	}

	worker, err := s.Storage.RecordWorkerRating(ctx, &models.WorkerRating{
		WorkerID:    *c.AssignedTo,
		ComplaintID: c.ID,
		RatedBy:     residentID,
		Rating:      in.Rating,
		Feedback:    strings.TrimSpace(in.Feedback),
	})
	if err != nil {
		if errors.Is(err, storage.ErrStatusChanged) {
			return nil, apperror.Conflict("can only rate completed tasks")
		}
		return nil, storage.Classify(err, "complaint")
	}

	if s.Metrics != nil {
		s.Metrics.ObserveTransition("rated")
	}
	s.Log.WithFields(logrus.Fields{
		"complaint_id":   c.ID,
		"worker_id":      worker.ID,
		"rating":         in.Rating,
		"average_rating": worker.AverageRating,
	}).Info("worker rated")
	return worker, nil
}
