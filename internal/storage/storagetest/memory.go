// Package storagetest provides an in-memory storage.Storage for tests.
package storagetest

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"hostelgrievance/backend/internal/models"
	"hostelgrievance/backend/internal/storage"

	"github.com/google/uuid"
)

// Memory is a goroutine-safe storage.Storage. Set Fail[method] to make that method
// return the error.
type Memory struct {
	mu sync.Mutex

	users         map[string]*models.User
	complaints    map[string]*models.Complaint
	upvotes       map[[2]string]bool
	ratings       []models.WorkerRating
	history       []models.HistoryEntry
	notifications []models.Notification
	nextID        uint
	clock         time.Time

	Fail      map[string]error
	Published []models.Notification
}

var _ storage.Storage = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		users:      make(map[string]*models.User),
		complaints: make(map[string]*models.Complaint),
		upvotes:    make(map[[2]string]bool),
		Fail:       make(map[string]error),
	}
}

func (m *Memory) failure(method string) error {
	return m.Fail[method]
}

// now is strictly increasing so that creation order is stable.
func (m *Memory) now() time.Time {
	t := time.Now()
	if !t.After(m.clock) {
		t = m.clock.Add(time.Microsecond)
	}
	m.clock = t
	return t
}

func (m *Memory) id() uint {
	m.nextID++
	return m.nextID
}

// --- users ---

func (m *Memory) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateUser"); err != nil {
		return err
	}
	for _, u := range m.users {
		if u.StudentID == user.StudentID {
			return storage.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := m.now()
	user.CreatedAt, user.UpdatedAt = now, now
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

// PutUser stores u as is, for seeding.
func (m *Memory) PutUser(u models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.now()
	}
	m.users[u.ID] = &u
	cp := u
	return &cp
}

func (m *Memory) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetUserByID"); err != nil {
		return nil, err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) GetUserByStudentID(_ context.Context, studentID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetUserByStudentID"); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.StudentID == studentID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *Memory) FindAdmins(_ context.Context, roles []models.AdminRole, hostel string) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("FindAdmins"); err != nil {
		return nil, err
	}
	var out []models.User
	for _, u := range m.users {
		if u.Role != models.RoleAdmin || (hostel != "" && u.Hostel != hostel) {
			continue
		}
		for _, r := range roles {
			if u.AdminRole == r {
				out = append(out, *u)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListUsersByRole(_ context.Context, role models.Role) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ListUsersByRole"); err != nil {
		return nil, err
	}
	var out []models.User
	for _, u := range m.users {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) ListWorkers(ctx context.Context) ([]models.User, error) {
	if err := m.failure("ListWorkers"); err != nil {
		return nil, err
	}
	workers, err := m.ListUsersByRole(ctx, models.RoleWorker)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(workers, func(i, j int) bool { return workers[i].AverageRating > workers[j].AverageRating })
	return workers, nil
}

func (m *Memory) UpdateUser(_ context.Context, id string, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpdateUser"); err != nil {
		return err
	}
	u, ok := m.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	return patch(u, updates)
}

// --- complaints ---

func (m *Memory) CreateComplaint(_ context.Context, c *models.Complaint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateComplaint"); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.now()
	}
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.complaints[c.ID] = &cp
	return nil
}

// PutComplaint stores c as is, for seeding.
func (m *Memory) PutComplaint(c models.Complaint) *models.Complaint {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.now()
	}
	m.complaints[c.ID] = &c
	cp := c
	return &cp
}

func (m *Memory) GetComplaint(_ context.Context, id string) (*models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetComplaint"); err != nil {
		return nil, err
	}
	c, ok := m.complaints[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func statusIn(s models.ComplaintStatus, set []models.ComplaintStatus) bool {
	for _, x := range set {
		if s == x {
			return true
		}
	}
	return false
}

func matches(c *models.Complaint, f storage.ComplaintFilter) bool {
	switch {
	case f.UserID != "" && c.UserID != f.UserID:
		return false
	case f.AssignedTo != "" && (c.AssignedTo == nil || *c.AssignedTo != f.AssignedTo):
		return false
	case len(f.Statuses) > 0 && !statusIn(c.Status, f.Statuses):
		return false
	case f.Category != "" && c.Category != f.Category:
		return false
	case f.Location != "" && c.Location != f.Location:
		return false
	case f.LocationPrefix != "" && !strings.HasPrefix(strings.ToLower(c.Location), strings.ToLower(f.LocationPrefix)):
		return false
	case f.Priority != "" && c.Priority != f.Priority:
		return false
	case f.EmergencyOnly && !c.IsEmergency:
		return false
	case f.CreatedSince != nil && c.CreatedAt.Before(*f.CreatedSince):
		return false
	}
	return true
}

func (m *Memory) ListComplaints(_ context.Context, f storage.ComplaintFilter) ([]models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ListComplaints"); err != nil {
		return nil, err
	}
	var out []models.Complaint
	for _, c := range m.complaints {
		if matches(c, f) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if f.EmergencyFirst && a.IsEmergency != b.IsEmergency {
			return a.IsEmergency
		}
		if f.ByUpvotes && a.UpvoteCount != b.UpvoteCount {
			return a.UpvoteCount > b.UpvoteCount
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) CountComplaints(_ context.Context, f storage.ComplaintFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CountComplaints"); err != nil {
		return 0, err
	}
	var n int64
	for _, c := range m.complaints {
		if matches(c, f) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) CountByStatus(_ context.Context, f storage.ComplaintFilter) (map[models.ComplaintStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CountByStatus"); err != nil {
		return nil, err
	}
	counts := make(map[models.ComplaintStatus]int64)
	for _, c := range m.complaints {
		if matches(c, f) {
			counts[c.Status]++
		}
	}
	return counts, nil
}

func guarded(c *models.Complaint, t storage.Transition) bool {
	switch {
	case len(t.From) > 0 && !statusIn(c.Status, t.From):
		return false
	case len(t.NotFrom) > 0 && statusIn(c.Status, t.NotFrom):
		return false
	case t.AssignedTo != "" && (c.AssignedTo == nil || *c.AssignedTo != t.AssignedTo):
		return false
	case t.Unescalated && c.EscalatedAt != nil:
		return false
	case t.Unrated && c.WorkerRating != nil:
		return false
	case t.DeadlineUntil != nil && (c.Deadline == nil || !c.Deadline.Before(*t.DeadlineUntil)):
		return false
	}
	return true
}

// patch applies column updates through the json tags, which mirror the column names.
func patch(target interface{}, updates map[string]interface{}) error {
	raw, err := json.Marshal(target)
	if err != nil {
		return err
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	for k, v := range updates {
		fields[k] = v
	}
	raw, err = json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}

func (m *Memory) transition(t storage.Transition) (*models.Complaint, error) {
	c, ok := m.complaints[t.ComplaintID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if !guarded(c, t) {
		return nil, storage.ErrStatusChanged
	}
	next := *c
	if err := patch(&next, t.Updates); err != nil {
		return nil, err
	}
	next.UpdatedAt = m.now()
	m.complaints[c.ID] = &next
	cp := next
	return &cp, nil
}

func (m *Memory) TransitionComplaint(_ context.Context, t storage.Transition) (*models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("TransitionComplaint"); err != nil {
		return nil, err
	}
	return m.transition(t)
}

func (m *Memory) CompleteTask(_ context.Context, t storage.Transition) (*models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CompleteTask"); err != nil {
		return nil, err
	}
	c, err := m.transition(t)
	if err != nil {
		return nil, err
	}
	if w, ok := m.users[t.AssignedTo]; ok {
		w.CompletedTasks++
	}
	return c, nil
}

func (m *Memory) FindOverdueComplaints(_ context.Context, now time.Time) ([]models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("FindOverdueComplaints"); err != nil {
		return nil, err
	}
	var out []models.Complaint
	for _, c := range m.complaints {
		if (c.Status == models.StatusAssigned || c.Status == models.StatusInProgress) &&
			c.Deadline != nil && c.Deadline.Before(now) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(*out[j].Deadline) })
	return out, nil
}

func (m *Memory) FindUnassignedComplaints(_ context.Context, validatedBefore time.Time) ([]models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("FindUnassignedComplaints"); err != nil {
		return nil, err
	}
	var out []models.Complaint
	for _, c := range m.complaints {
		if c.Status == models.StatusValidated && c.EscalatedAt == nil &&
			c.ValidatedAt != nil && c.ValidatedAt.Before(validatedBefore) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ValidatedAt.Before(*out[j].ValidatedAt) })
	return out, nil
}

// --- upvotes ---

func (m *Memory) AddUpvote(_ context.Context, complaintID, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("AddUpvote"); err != nil {
		return 0, err
	}
	c, ok := m.complaints[complaintID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	key := [2]string{complaintID, userID}
	if m.upvotes[key] {
		return 0, storage.ErrDuplicateVote
	}
	m.upvotes[key] = true
	c.UpvoteCount = models.FloorUpvotes(c.UpvoteCount + 1)
	return c.UpvoteCount, nil
}

func (m *Memory) RemoveUpvote(_ context.Context, complaintID, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("RemoveUpvote"); err != nil {
		return 0, err
	}
	c, ok := m.complaints[complaintID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	key := [2]string{complaintID, userID}
	if !m.upvotes[key] {
		return 0, storage.ErrNotVoted
	}
	delete(m.upvotes, key)
	c.UpvoteCount = models.FloorUpvotes(c.UpvoteCount - 1)
	return c.UpvoteCount, nil
}

func (m *Memory) UpvotedComplaintIDs(_ context.Context, userID string, complaintIDs []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpvotedComplaintIDs"); err != nil {
		return nil, err
	}
	voted := make(map[string]bool)
	for _, id := range complaintIDs {
		if m.upvotes[[2]string{id, userID}] {
			voted[id] = true
		}
	}
	return voted, nil
}

// --- ratings ---

func (m *Memory) RecordWorkerRating(_ context.Context, r *models.WorkerRating) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("RecordWorkerRating"); err != nil {
		return nil, err
	}
	c, ok := m.complaints[r.ComplaintID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if c.WorkerRating != nil {
		return nil, storage.ErrAlreadyRated
	}
	if c.Status != models.StatusCompleted {
		return nil, storage.ErrStatusChanged
	}
	w, ok := m.users[r.WorkerID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	now := m.now()
	r.ID = m.id()
	r.CreatedAt = now
	m.ratings = append(m.ratings, *r)

	rating, ratedBy := r.Rating, r.RatedBy
	c.WorkerRating, c.RatedBy, c.RatedAt = &rating, &ratedBy, &now
	w.ApplyRating(r.Rating)
	cp := *w
	return &cp, nil
}

func (m *Memory) ListWorkerRatings(_ context.Context, workerID string, limit int) ([]models.WorkerRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ListWorkerRatings"); err != nil {
		return nil, err
	}
	var out []models.WorkerRating
	for i := len(m.ratings) - 1; i >= 0; i-- {
		if m.ratings[i].WorkerID == workerID {
			out = append(out, m.ratings[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// --- history ---

func (m *Memory) AppendHistory(_ context.Context, e *models.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("AppendHistory"); err != nil {
		return err
	}
	e.ID = m.id()
	e.CreatedAt = m.now()
	m.history = append(m.history, *e)
	return nil
}

func (m *Memory) ListHistory(_ context.Context, complaintID string) ([]models.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ListHistory"); err != nil {
		return nil, err
	}
	var out []models.HistoryEntry
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].ComplaintID == complaintID {
			out = append(out, m.history[i])
		}
	}
	return out, nil
}

// --- notifications ---

func (m *Memory) CreateNotification(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateNotification"); err != nil {
		return err
	}
	n.ID = m.id()
	n.CreatedAt = m.now()
	m.notifications = append(m.notifications, *n)
	return nil
}

func (m *Memory) PublishNotification(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("PublishNotification"); err != nil {
		return err
	}
	m.Published = append(m.Published, *n)
	return nil
}

func (m *Memory) ListNotifications(_ context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ListNotifications"); err != nil {
		return nil, err
	}
	var out []models.Notification
	for i := len(m.notifications) - 1; i >= 0; i-- {
		n := m.notifications[i]
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *Memory) MarkNotificationRead(_ context.Context, userID string, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("MarkNotificationRead"); err != nil {
		return err
	}
	for i := range m.notifications {
		if m.notifications[i].ID == id && m.notifications[i].UserID == userID {
			m.notifications[i].IsRead = true
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *Memory) MarkAllNotificationsRead(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("MarkAllNotificationsRead"); err != nil {
		return 0, err
	}
	var n int64
	for i := range m.notifications {
		if m.notifications[i].UserID == userID && !m.notifications[i].IsRead {
			m.notifications[i].IsRead = true
			n++
		}
	}
	return n, nil
}

// Notifications returns every stored notification in creation order.
func (m *Memory) Notifications() []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Notification(nil), m.notifications...)
}

// History returns every history entry in append order.
func (m *Memory) History() []models.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.HistoryEntry(nil), m.history...)
}

// Ratings returns every stored rating in insertion order.
func (m *Memory) Ratings() []models.WorkerRating {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.WorkerRating(nil), m.ratings...)
}
