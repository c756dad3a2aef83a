package complaint

import (
	"context"

	"hostelgrievance/backend/internal/apperror"
	"hostelgrievance/backend/internal/models"
	"hostelgrievance/backend/internal/roles"
	"hostelgrievance/backend/internal/storage"
)

// QueueItem is a complaint annotated with its filer.
type QueueItem struct {
	models.Complaint
	StudentName  string `json:"student_name"`
	StudentID    string `json:"student_id"`
	StudentEmail string `json:"student_email,omitempty"`
	Hostel       string `json:"hostel,omitempty"`
	RoomNumber   string `json:"room_number,omitempty"`
}

// QueueFilter narrows the admin queue.
type QueueFilter struct {
	Status   models.ComplaintStatus
	Category string
	Priority models.Priority
	Hostel   string
}

// Get returns one complaint. Residents may only read their own.
func (s *Service) Get(ctx context.Context, viewerID, complaintID string) (*models.Complaint, error) {
	viewer, err := s.loadActor(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	c, err := s.Storage.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, storage.Classify(err, "complaint")
	}
	if viewer.Role == models.RoleResident && c.UserID != viewer.ID {
		return nil, apperror.Forbidden("not your complaint")
	}
	return c, nil
}

// ListMine returns the resident's complaints, newest first.
func (s *Service) ListMine(ctx context.Context, residentID string) ([]models.Complaint, error) {
	list, err := s.Storage.ListComplaints(ctx, storage.ComplaintFilter{UserID: residentID})
	if err != nil {
		return nil, storage.Classify(err, "complaint")
	}
	return list, nil
}

// WorkerTasks returns the complaints assigned to workerID, newest first.
func (s *Service) WorkerTasks(ctx context.Context, workerID string) ([]models.Complaint, error) {
	list, err := s.Storage.ListComplaints(ctx, storage.ComplaintFilter{AssignedTo: workerID})
	if err != nil {
		return nil, storage.Classify(err, "task")
	}
	return list, nil
}

// queueStatuses is what each admin role works on when no status filter is given.
func queueStatuses(role models.AdminRole) []models.ComplaintStatus {
	switch role {
	case models.AdminRoleValidator:
		return []models.ComplaintStatus{models.StatusPending}
	case models.AdminRoleSupervisor:
		return []models.ComplaintStatus{models.StatusValidated, models.StatusAssigned}
	case models.AdminRoleWarden, models.AdminRoleDean:
		return []models.ComplaintStatus{models.StatusEscalated}
	}
	return nil
}

// AdminQueue returns every emergency followed by the regular complaints of the
// caller's role. It also reports the resolved role.
func (s *Service) AdminQueue(ctx context.Context, actorID string, f QueueFilter) ([]QueueItem, models.AdminRole, error) {
	actor, err := s.loadAdmin(ctx, actorID)
	if err != nil {
		return nil, models.AdminRoleNone, err
	}
	role := roles.Resolve(actor)

	emergencies, err := s.Storage.ListComplaints(ctx, storage.ComplaintFilter{EmergencyOnly: true})
	if err != nil {
		return nil, role, storage.Classify(err, "complaint")
	}

	regularFilter := storage.ComplaintFilter{
		Category: f.Category,
		Priority: f.Priority,
		Statuses: queueStatuses(role),
	}
	if f.Status != "" {
		regularFilter.Statuses = []models.ComplaintStatus{f.Status}
	}
	all, err := s.Storage.ListComplaints(ctx, regularFilter)
	if err != nil {
		return nil, role, storage.Classify(err, "complaint")
	}

	queue := append([]models.Complaint{}, emergencies...)
	for _, c := range all {
		if !c.IsEmergency {
			queue = append(queue, c)
		}
	}
	items, err := s.annotate(ctx, queue)
	return items, role, err
}

// EmergencyQueue lists emergencies filed by residents of the caller's hostel.
// Wardens, validators and deans may read it.
func (s *Service) EmergencyQueue(ctx context.Context, actorID string, f QueueFilter) ([]QueueItem, models.AdminRole, error) {
	actor, err := s.loadAdmin(ctx, actorID)
	if err != nil {
		return nil, models.AdminRoleNone, err
	}
	if !roles.Has(actor, models.AdminRoleWarden, models.AdminRoleValidator, models.AdminRoleDean) {
		return nil, models.AdminRoleNone, apperror.Forbidden("only wardens, validators and deans can view emergency complaints")
	}

	filter := storage.ComplaintFilter{EmergencyOnly: true}
	if f.Status != "" {
		filter.Statuses = []models.ComplaintStatus{f.Status}
	}
	list, err := s.Storage.ListComplaints(ctx, filter)
	if err != nil {
		return nil, actor.AdminRole, storage.Classify(err, "complaint")
	}
	items, err := s.annotate(ctx, list)
	if err != nil {
		return nil, actor.AdminRole, err
	}

	out := items[:0]
	for _, it := range items {
		if actor.Hostel != "" && it.Hostel != actor.Hostel {
			continue
		}
		if f.Hostel != "" && it.Hostel != f.Hostel {
			continue
		}
		out = append(out, it)
	}
	return out, actor.AdminRole, nil
}

func (s *Service) annotate(ctx context.Context, list []models.Complaint) ([]QueueItem, error) {
	owners := make(map[string]*models.User)
	items := make([]QueueItem, 0, len(list))
	for _, c := range list {
		owner, seen := owners[c.UserID]
		if !seen {
			u, err := s.Storage.GetUserByID(ctx, c.UserID)
			if err != nil && !apperror.Is(storage.Classify(err, "user"), apperror.KindNotFound) {
				return nil, storage.Classify(err, "user")
			}
			owner = u
			owners[c.UserID] = u
		}

		item := QueueItem{Complaint: c, StudentName: "Unknown"}
		if owner != nil {
			item.StudentName = owner.Name
			item.StudentID = owner.StudentID
			item.StudentEmail = owner.Email
			item.Hostel = owner.Hostel
			item.RoomNumber = owner.RoomNumber
		}
		items = append(items, item)
	}
	return items, nil
}

// ListHistory returns the audit trail of a complaint, newest first. Admins only.
func (s *Service) ListHistory(ctx context.Context, actorID, complaintID string) ([]models.HistoryEntry, error) {
	if _, err := s.loadAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	entries, err := s.Storage.ListHistory(ctx, complaintID)
	if err != nil {
		return nil, storage.Classify(err, "history")
	}
	return entries, nil
}

// Stats are the global complaint counters.
type Stats struct {
	Total        int64 `json:"total"`
	Pending      int64 `json:"pending"`
	Emergency    int64 `json:"emergency"`
	Validated    int64 `json:"validated"`
	Assigned     int64 `json:"assigned"`
	InProgress   int64 `json:"in_progress"`
	Escalated    int64 `json:"escalated"`
	Completed    int64 `json:"completed"`
	Resolved     int64 `json:"resolved"`
	Closed       int64 `json:"closed"`
	HighPriority int64 `json:"high_priority"`
}

// GlobalStats counts complaints by status. Admins only.
func (s *Service) GlobalStats(ctx context.Context, actorID string) (*Stats, error) {
	if _, err := s.loadAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	byStatus, err := s.Storage.CountByStatus(ctx, storage.ComplaintFilter{})
	if err != nil {
		return nil, storage.Classify(err, "complaint")
	}
	high, err := s.Storage.CountComplaints(ctx, storage.ComplaintFilter{Priority: models.PriorityHigh})
	if err != nil {
		return nil, storage.Classify(err, "complaint")
	}

	st := &Stats{
		Pending:      byStatus[models.StatusPending],
		Emergency:    byStatus[models.StatusEmergency],
		Validated:    byStatus[models.StatusValidated],
		Assigned:     byStatus[models.StatusAssigned],
		InProgress:   byStatus[models.StatusInProgress],
		Escalated:    byStatus[models.StatusEscalated],
		Completed:    byStatus[models.StatusCompleted],
		Resolved:     byStatus[models.StatusResolved],
		HighPriority: high,
	}
	for _, n := range byStatus {
		st.Total += n
	}
	st.Closed = st.Completed + st.Resolved
	return st, nil
}

// Dashboard returns the counters relevant to the caller's admin role.
func (s *Service) Dashboard(ctx context.Context, actorID string) (map[string]interface{}, error) {
	actor, err := s.loadAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}
	role := roles.Resolve(actor)
	byStatus, err := s.Storage.CountByStatus(ctx, storage.ComplaintFilter{})
	if err != nil {
		return nil, storage.Classify(err, "complaint")
	}

	stats := map[string]interface{}{"role": role}
	switch role {
	case models.AdminRoleValidator:
		stats["pending_validation"] = byStatus[models.StatusPending]
	case models.AdminRoleSupervisor:
		stats["pending_assignment"] = byStatus[models.StatusValidated]
		stats["assigned"] = byStatus[models.StatusAssigned]
		stats["in_progress"] = byStatus[models.StatusInProgress]
	case models.AdminRoleWarden, models.AdminRoleDean:
		stats["escalated_complaints"] = byStatus[models.StatusEscalated]
		stats["active_emergencies"] = byStatus[models.StatusEmergency]
	}
	return stats, nil
}
