package complaint

import (
	"context"

	"hostelgrievance/backend/internal/apperror"
	"hostelgrievance/backend/internal/models"
	"hostelgrievance/backend/internal/storage"
)

// WorkInput is what a worker reports while working on a task. Photo is a data URI
// or bare base64 payload.
type WorkInput struct {
	Notes       string `json:"notes"`
	ProofOfWork string `json:"proof_of_work"`
	Photo       string `json:"photo"`
}

// loadTask returns the complaint if it is assigned to workerID.
func (s *Service) loadTask(ctx context.Context, workerID, complaintID string) (*models.Complaint, error) {
	worker, err := s.loadActor(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if worker.Role != models.RoleWorker {
		return nil, apperror.Forbidden("worker access required")
	}

	c, err := s.Storage.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, storage.Classify(err, "task")
	}
	if c.AssignedTo == nil || *c.AssignedTo != workerID {
		return nil, apperror.Forbidden("task is not assigned to you")
	}
	return c, nil
}

// StartWork moves an assigned task to in_progress.
func (s *Service) StartWork(ctx context.Context, workerID, complaintID string, in WorkInput) (*models.Complaint, error) {
	c, err := s.loadTask(ctx, workerID, complaintID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"status": models.StatusInProgress}
	if in.Notes != "" {
		updates["worker_notes"] = in.Notes
	}
	if in.Photo != "" {
		updates["progress_photo_url"] = s.photoURL(ctx, "progress", c.ID, in.Photo)
	}

	updated, err := s.Storage.TransitionComplaint(ctx, storage.Transition{
		ComplaintID: c.ID,
		From:        []models.ComplaintStatus{models.StatusAssigned},
		AssignedTo:  workerID,
		Updates:     updates,
	})
	if err != nil {
		return nil, storage.Classify(err, "task")
	}

	s.History.Record(ctx, c.ID, models.ActionWorkStarted, workerID, c.Status, updated.Status, in.Notes)
	s.observe(models.ActionWorkStarted)
	return updated, nil
}

// Complete marks an in-progress task completed and credits the worker.
func (s *Service) Complete(ctx context.Context, workerID, complaintID string, in WorkInput) (*models.Complaint, error) {
	c, err := s.loadTask(ctx, workerID, complaintID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"status":           models.StatusCompleted,
		"completed_at":     s.Now(),
		"proof_of_work":    in.ProofOfWork,
		"completion_notes": in.Notes,
	}
	if in.Photo != "" {
		updates["completion_photo_url"] = s.photoURL(ctx, "completion", c.ID, in.Photo)
	}

	updated, err := s.Storage.CompleteTask(ctx, storage.Transition{
		ComplaintID: c.ID,
		From:        []models.ComplaintStatus{models.StatusInProgress},
		AssignedTo:  workerID,
		Updates:     updates,
	})
	if err != nil {
		return nil, storage.Classify(err, "task")
	}

	s.History.Record(ctx, c.ID, models.ActionCompleted, workerID, c.Status, updated.Status, in.Notes)
	s.observe(models.ActionCompleted)
	return updated, nil
}

// UpdateNotes records worker notes and an optional progress photo without
// changing the status.
func (s *Service) UpdateNotes(ctx context.Context, workerID, complaintID string, in WorkInput) (*models.Complaint, error) {
	c, err := s.loadTask(ctx, workerID, complaintID)
	if err != nil {
		return nil, err
	}
	if in.Notes == "" && in.Photo == "" {
		return nil, apperror.Validation("notes or photo is required")
	}

	updates := map[string]interface{}{}
	if in.Notes != "" {
		updates["worker_notes"] = in.Notes
	}
	if in.Photo != "" {
		updates["progress_photo_url"] = s.photoURL(ctx, "progress", c.ID, in.Photo)
	}

	updated, err := s.Storage.TransitionComplaint(ctx, storage.Transition{
		ComplaintID: c.ID,
		From:        []models.ComplaintStatus{models.StatusAssigned, models.StatusInProgress},
		AssignedTo:  workerID,
		Updates:     updates,
	})
	if err != nil {
		return nil, storage.Classify(err, "task")
	}
	return updated, nil
}

func (s *Service) photoURL(ctx context.Context, kind, complaintID, payload string) string {
	if s.Photos == nil {
		return payload
	}
	return s.Photos.Save(ctx, kind, complaintID, payload)
}
