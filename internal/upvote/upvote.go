// Package upvote aggregates residents' "me too" support for open complaints.
package upvote

import (
	"context"
	"strings"

	"hostelgrievance/backend/internal/apperror"
	"hostelgrievance/backend/internal/models"
	"hostelgrievance/backend/internal/storage"

	"github.com/sirupsen/logrus"
)

// Candidate is an open complaint a resident may support.
type Candidate struct {
	models.Complaint
	UserUpvoted bool `json:"user_upvoted"`
}

type Service struct {
	Storage storage.Storage
	Log     logrus.FieldLogger
}

func NewService(s storage.Storage, log logrus.FieldLogger) *Service {
	return &Service{Storage: s, Log: log}
}

// Upvote records residentID's support and returns the new count. The filer already
// counts as the first supporter and cannot vote again.
func (s *Service) Upvote(ctx context.Context, residentID, complaintID string) (int, error) {
	c, err := s.Storage.GetComplaint(ctx, complaintID)
	if err != nil {
		return 0, storage.Classify(err, "complaint")
	}
	if c.UserID == residentID {
		return 0, apperror.Conflict("you filed this complaint")
	}
	if !c.IsOpen() {
		return 0, apperror.Conflict("complaint is no longer open")
	}

	count, err := s.Storage.AddUpvote(ctx, complaintID, residentID)
	if err != nil {
		return 0, storage.Classify(err, "complaint")
	}
	s.Log.WithFields(logrus.Fields{"complaint_id": complaintID, "user_id": residentID, "upvote_count": count}).Debug("complaint upvoted")
	return count, nil
}

// RemoveUpvote withdraws residentID's support. The count never drops below one.
func (s *Service) RemoveUpvote(ctx context.Context, residentID, complaintID string) (int, error) {
	count, err := s.Storage.RemoveUpvote(ctx, complaintID, residentID)
	if err != nil {
		return 0, storage.Classify(err, "complaint")
	}
	s.Log.WithFields(logrus.Fields{"complaint_id": complaintID, "user_id": residentID, "upvote_count": count}).Debug("upvote removed")
	return count, nil
}

// Candidates lists open complaints whose location starts with hostel, most
// supported first, each flagged with whether residentID already upvoted it.
func (s *Service) Candidates(ctx context.Context, residentID, hostel string) ([]Candidate, error) {
	hostel = strings.TrimSpace(hostel)
	if hostel == "" {
		return nil, apperror.Validation("hostel is required")
	}

	list, err := s.Storage.ListComplaints(ctx, storage.ComplaintFilter{
		LocationPrefix: hostel,
		Statuses:       models.OpenStatuses,
		ByUpvotes:      true,
	})
	if err != nil {
		return nil, storage.Classify(err, "complaint")
	}

	ids := make([]string, len(list))
	for i, c := range list {
		ids[i] = c.ID
	}
	voted, err := s.Storage.UpvotedComplaintIDs(ctx, residentID, ids)
	if err != nil {
		return nil, storage.Classify(err, "upvote")
	}

	out := make([]Candidate, len(list))
	for i, c := range list {
		c.UpvoteCount = models.FloorUpvotes(c.UpvoteCount)
		out[i] = Candidate{Complaint: c, UserUpvoted: voted[c.ID]}
	}
	return out, nil
}
