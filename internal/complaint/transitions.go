package complaint

import (
	"context"
	"time"

	"hostelgrievance/backend/internal/analysis"
	"hostelgrievance/backend/internal/apperror"
	"hostelgrievance/backend/internal/config"
	"hostelgrievance/backend/internal/models"
	"hostelgrievance/backend/internal/roles"
	"hostelgrievance/backend/internal/storage"
)

// Validate triages a pending complaint. Only validators may call it. A recurring
// issue in the same category and location is forced to high priority.
func (s *Service) Validate(ctx context.Context, actorID, complaintID string, requested models.Priority) (*models.Complaint, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !roles.Has(actor, models.AdminRoleValidator) {
		return nil, apperror.Forbidden("only validators can validate complaints")
	}
	if requested != "" && !requested.Valid() {
		return nil, apperror.Validation("invalid priority")
	}

	c, err := s.Storage.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, storage.Classify(err, "complaint")
	}
	if c.Status != models.StatusPending {
		return nil, apperror.Conflict("only pending complaints can be validated")
	}

	since := s.Now().Add(-config.FrequencyWindow)
	similar, err := s.Storage.CountComplaints(ctx, storage.ComplaintFilter{
		Category:     c.Category,
		Location:     c.Location,
		CreatedSince: &since,
	})
	if err != nil {
		return nil, storage.Classify(err, "complaint")
	}
	priority := analysis.ValidationPriority(similar, requested, c.Priority)

	updated, err := s.Storage.TransitionComplaint(ctx, storage.Transition{
		ComplaintID: c.ID,
		From:        []models.ComplaintStatus{models.StatusPending},
		Updates: map[string]interface{}{
			"status":       models.StatusValidated,
			"priority":     priority,
			"validated_by": actor.ID,
			"validated_at": s.Now(),
		},
	})
	if err != nil {
		return nil, storage.Classify(err, "complaint")
	}

	s.History.Record(ctx, c.ID, models.ActionValidated, actor.ID, c.Status, updated.Status,
		s.msg("history.validated", priority))
	s.observe(models.ActionValidated)
	return updated, nil
}

// AssignInput names the worker and an optional deadline in days.
type AssignInput struct {
	WorkerID     string `json:"worker_id" validate:"required"`
	DeadlineDays int    `json:"deadline_days" validate:"gte=0"`
}

// Assign hands a validated (or escalated) complaint to a worker. Only supervisors
// may call it.
func (s *Service) Assign(ctx context.Context, actorID, complaintID string, in AssignInput) (*models.Complaint, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !roles.Has(actor, models.AdminRoleSupervisor) {
		return nil, apperror.Forbidden("only supervisors can assign complaints")
	}
	if err := apperror.Validate(in); err != nil {
		return nil, err
	}

	worker, err := s.Storage.GetUserByID(ctx, in.WorkerID)
	if err != nil && !apperror.Is(storage.Classify(err, "worker"), apperror.KindNotFound) {
		return nil, storage.Classify(err, "worker")
	}
	if worker == nil || worker.Role != models.RoleWorker {
		return nil, apperror.NotFound("worker not found")
	}

	window := s.DefaultDeadline
	if in.DeadlineDays > 0 {
		window = time.Duration(in.DeadlineDays) * 24 * time.Hour
	}
	deadline := s.Now().Add(window)

	before, err := s.Storage.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, storage.Classify(err, "complaint")
	}
	updated, err := s.Storage.TransitionComplaint(ctx, storage.Transition{
		ComplaintID: complaintID,
		From:        []models.ComplaintStatus{models.StatusValidated, models.StatusEscalated},
		Updates: map[string]interface{}{
			"status":      models.StatusAssigned,
			"assigned_to": worker.ID,
			"deadline":    deadline,
		},
	})
	if err != nil {
		return nil, storage.Classify(err, "complaint")
	}

	s.History.Record(ctx, complaintID, models.ActionAssigned, actor.ID, before.Status, updated.Status,
		s.msg("history.assigned", worker.Name, deadline.Format(time.RFC3339)))
	s.observe(models.ActionAssigned)
	s.Notifier.Enqueue(ctx, worker.ID, complaintID, s.msg("notify.complaint.assigned", updated.Title, updated.Location))
	return updated, nil
}

// VerifyInput carries the verifier's decision. Approved is required.
type VerifyInput struct {
	Approved *bool  `json:"approved" validate:"required"`
	Notes    string `json:"notes"`
}

// Verify closes completed work (approved) or sends it back to the worker.
// Any admin may verify.
func (s *Service) Verify(ctx context.Context, actorID, complaintID string, in VerifyInput) (*models.Complaint, error) {
	actor, err := s.loadAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if in.Approved == nil {
		return nil, apperror.Validation("approval status is required")
	}

	updates := map[string]interface{}{
		"verified_by":        actor.ID,
		"verification_notes": in.Notes,
	}
	action := models.ActionVerificationRejected
	if *in.Approved {
		action = models.ActionVerified
		updates["status"] = models.StatusResolved
		updates["resolved_by"] = actor.ID
		updates["resolved_at"] = s.Now()
		updates["resolution_path"] = models.ResolutionVerification
	} else {
		updates["status"] = models.StatusInProgress
	}

	updated, err := s.Storage.TransitionComplaint(ctx, storage.Transition{
		ComplaintID: complaintID,
		From:        []models.ComplaintStatus{models.StatusCompleted},
		Updates:     updates,
	})
	if err != nil {
		return nil, storage.Classify(err, "complaint")
	}

	s.History.Record(ctx, complaintID, action, actor.ID, models.StatusCompleted, updated.Status, in.Notes)
	s.observe(action)
	if *in.Approved {
		s.Notifier.Enqueue(ctx, updated.UserID, complaintID, s.msg("notify.complaint.verified", updated.Title))
	} else if updated.AssignedTo != nil {
		s.Notifier.Enqueue(ctx, *updated.AssignedTo, complaintID, s.msg("notify.complaint.rejected", updated.Title))
	}
	return updated, nil
}

// Escalate moves a complaint to a warden or dean. Any admin may escalate any
// complaint that is not yet resolved.
func (s *Service) Escalate(ctx context.Context, actorID, complaintID string, target models.AdminRole) (*models.Complaint, error) {
	actor, err := s.loadAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if target == models.AdminRoleNone {
		target = models.AdminRole(config.EscalationTarget)
	}
	if target != models.AdminRoleWarden && target != models.AdminRoleDean {
		return nil, apperror.Validation("invalid escalation target")
	}

	before, err := s.Storage.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, storage.Classify(err, "complaint")
	}
	if before.Status == models.StatusResolved {
		return nil, apperror.Conflict("complaint already resolved")
	}

	updated, err := s.Storage.TransitionComplaint(ctx, storage.Transition{
		ComplaintID: complaintID,
		NotFrom:     []models.ComplaintStatus{models.StatusResolved},
		Updates: map[string]interface{}{
			"status":       models.StatusEscalated,
			"escalated_to": target,
			"escalated_at": s.Now(),
		},
	})
	if err != nil {
		return nil, storage.Classify(err, "complaint")
	}

	s.History.Record(ctx, complaintID, models.ActionEscalated, actor.ID, before.Status, updated.Status,
		s.msg("history.escalated.manual", target))
	s.observe(models.ActionEscalated)
	return updated, nil
}

// ResolveEmergency closes an emergency directly. Any admin may resolve it.
func (s *Service) ResolveEmergency(ctx context.Context, actorID, complaintID, notes string) (*models.Complaint, error) {
	actor, err := s.loadAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}

	before, err := s.Storage.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, storage.Classify(err, "emergency complaint")
	}
	if !before.IsEmergency {
		return nil, apperror.Validation("complaint is not an emergency")
	}
	if before.Status == models.StatusResolved {
		return nil, apperror.Conflict("emergency complaint already resolved")
	}

	updated, err := s.Storage.TransitionComplaint(ctx, storage.Transition{
		ComplaintID: complaintID,
		NotFrom:     []models.ComplaintStatus{models.StatusResolved},
		Updates: map[string]interface{}{
			"status":           models.StatusResolved,
			"resolved_by":      actor.ID,
			"resolved_at":      s.Now(),
			"resolution_notes": notes,
			"resolution_path":  models.ResolutionEmergency,
		},
	})
	if err != nil {
		return nil, storage.Classify(err, "emergency complaint")
	}

	historyNote := notes
	if historyNote == "" {
		historyNote = s.msg("history.emergency.resolved")
	}
	s.History.Record(ctx, complaintID, models.ActionEmergencyResolved, actor.ID, before.Status, updated.Status, historyNote)
	s.observe(models.ActionEmergencyResolved)
	s.Notifier.Enqueue(ctx, updated.UserID, complaintID, s.msg("notify.emergency.resolved", updated.Title))
	return updated, nil
}
