package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"hostelgrievance/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicate     = errors.New("record already exists")
	ErrStatusChanged = errors.New("complaint status changed")
	ErrDuplicateVote = errors.New("complaint already upvoted by user")
	ErrNotVoted      = errors.New("complaint not upvoted by user")
	ErrAlreadyRated  = errors.New("complaint already rated")
)

// NotificationChannelPrefix prefixes the per-user Redis channel carrying new notifications.
const NotificationChannelPrefix = "notifications:"

// ComplaintFilter narrows complaint queries. Zero fields are ignored.
type ComplaintFilter struct {
	UserID         string
	AssignedTo     string
	Statuses       []models.ComplaintStatus
	Category       string
	Location       string
	LocationPrefix string
	Priority       models.Priority
	EmergencyOnly  bool
	CreatedSince   *time.Time

	EmergencyFirst bool
	ByUpvotes      bool
	Limit          int
}

// Transition is a conditional update of one complaint. It only applies while the
// row still matches every guard, which makes it a claim: of two concurrent callers
// at most one sees the row change.
type Transition struct {
	ComplaintID string

	From          []models.ComplaintStatus // allowed current statuses, empty = any
	NotFrom       []models.ComplaintStatus
	AssignedTo    string     // require assigned_to to equal this worker
	Unescalated   bool       // require escalated_at IS NULL
	Unrated       bool       // require worker_rating IS NULL
	DeadlineUntil *time.Time // require deadline < this instant

	Updates map[string]interface{}
}

type Storage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByStudentID(ctx context.Context, studentID string) (*models.User, error)
	FindAdmins(ctx context.Context, roles []models.AdminRole, hostel string) ([]models.User, error)
	ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error)
	ListWorkers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, id string, updates map[string]interface{}) error

	CreateComplaint(ctx context.Context, complaint *models.Complaint) error
	GetComplaint(ctx context.Context, id string) (*models.Complaint, error)
	ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error)
	CountComplaints(ctx context.Context, filter ComplaintFilter) (int64, error)
	CountByStatus(ctx context.Context, filter ComplaintFilter) (map[models.ComplaintStatus]int64, error)
	TransitionComplaint(ctx context.Context, t Transition) (*models.Complaint, error)
	CompleteTask(ctx context.Context, t Transition) (*models.Complaint, error)
	FindOverdueComplaints(ctx context.Context, now time.Time) ([]models.Complaint, error)
	FindUnassignedComplaints(ctx context.Context, validatedBefore time.Time) ([]models.Complaint, error)

	AddUpvote(ctx context.Context, complaintID, userID string) (int, error)
	RemoveUpvote(ctx context.Context, complaintID, userID string) (int, error)
	UpvotedComplaintIDs(ctx context.Context, userID string, complaintIDs []string) (map[string]bool, error)

	RecordWorkerRating(ctx context.Context, rating *models.WorkerRating) (*models.User, error)
	ListWorkerRatings(ctx context.Context, workerID string, limit int) ([]models.WorkerRating, error)

	AppendHistory(ctx context.Context, entry *models.HistoryEntry) error
	ListHistory(ctx context.Context, complaintID string) ([]models.HistoryEntry, error)

	CreateNotification(ctx context.Context, n *models.Notification) error
	PublishNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID string, id uint) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
}

// Service is the gorm/Postgres Storage. Redis carries notification fan-out and may be nil.
type Service struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Timeout time.Duration
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client, timeout time.Duration) *Service {
	return &Service{
		DB:      db,
		Redis:   rdb,
		Timeout: timeout,
	}
}

// Migrate creates or updates every table.
func (s *Service) Migrate(ctx context.Context) error {
	return s.DB.WithContext(ctx).AutoMigrate(models.All()...)
}

// db returns a session bounded by the store timeout.
func (s *Service) db(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if s.Timeout <= 0 {
		return s.DB.WithContext(ctx), func() {}
	}
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	return s.DB.WithContext(ctx), cancel
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

// --- users ---

func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	db, cancel := s.db(ctx)
	defer cancel()
	return translate(db.Create(user).Error)
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	var user models.User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Service) GetUserByStudentID(ctx context.Context, studentID string) (*models.User, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	var user models.User
	if err := db.Where("student_id = ?", studentID).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindAdmins returns admins holding any of roles. An empty hostel matches every hostel.
func (s *Service) FindAdmins(ctx context.Context, roles []models.AdminRole, hostel string) ([]models.User, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	q := db.Where("role = ? AND admin_role IN ?", models.RoleAdmin, roles)
	if hostel != "" {
		q = q.Where("hostel = ?", hostel)
	}
	var admins []models.User
	if err := q.Order("created_at asc").Find(&admins).Error; err != nil {
		return nil, err
	}
	return admins, nil
}

func (s *Service) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	var users []models.User
	if err := db.Where("role = ?", role).Order("name asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ListWorkers orders workers by average rating, best first.
func (s *Service) ListWorkers(ctx context.Context) ([]models.User, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	var workers []models.User
	err := db.Where("role = ?", models.RoleWorker).
		Order("average_rating desc").Order("name asc").
		Find(&workers).Error
	if err != nil {
		return nil, err
	}
	return workers, nil
}

func (s *Service) UpdateUser(ctx context.Context, id string, updates map[string]interface{}) error {
	db, cancel := s.db(ctx)
	defer cancel()

	res := db.Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- complaints ---

func (s *Service) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	db, cancel := s.db(ctx)
	defer cancel()
	return translate(db.Create(complaint).Error)
}

func (s *Service) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	db, cancel := s.db(ctx)
	defer cancel()
	return getComplaint(db, id)
}

func getComplaint(db *gorm.DB, id string) (*models.Complaint, error) {
	var c models.Complaint
	if err := db.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// likeEscaper makes a user value match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func applyFilter(q *gorm.DB, f ComplaintFilter) *gorm.DB {
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.AssignedTo != "" {
		q = q.Where("assigned_to = ?", f.AssignedTo)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Location != "" {
		q = q.Where("location = ?", f.Location)
	}
	if f.LocationPrefix != "" {
		q = q.Where(`LOWER(location) LIKE LOWER(?) ESCAPE '\'`, likeEscaper.Replace(f.LocationPrefix)+"%")
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.EmergencyOnly {
		q = q.Where("is_emergency = ?", true)
	}
	if f.CreatedSince != nil {
		q = q.Where("created_at >= ?", *f.CreatedSince)
	}
	return q
}

func (s *Service) ListComplaints(ctx context.Context, f ComplaintFilter) ([]models.Complaint, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	q := applyFilter(db.Model(&models.Complaint{}), f)
	if f.EmergencyFirst {
		q = q.Order("is_emergency desc")
	}
	if f.ByUpvotes {
		q = q.Order("upvote_count desc")
	}
	q = q.Order("created_at desc")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var complaints []models.Complaint
	if err := q.Find(&complaints).Error; err != nil {
		return nil, err
	}
	return complaints, nil
}

func (s *Service) CountComplaints(ctx context.Context, f ComplaintFilter) (int64, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	var n int64
	if err := applyFilter(db.Model(&models.Complaint{}), f).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Service) CountByStatus(ctx context.Context, f ComplaintFilter) (map[models.ComplaintStatus]int64, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	var rows []struct {
		Status models.ComplaintStatus
		N      int64
	}
	err := applyFilter(db.Model(&models.Complaint{}), f).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.ComplaintStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}

func transitionScope(q *gorm.DB, t Transition) *gorm.DB {
	q = q.Where("id = ?", t.ComplaintID)
	if len(t.From) > 0 {
		q = q.Where("status IN ?", t.From)
	}
	if len(t.NotFrom) > 0 {
		q = q.Where("status NOT IN ?", t.NotFrom)
	}
	if t.AssignedTo != "" {
		q = q.Where("assigned_to = ?", t.AssignedTo)
	}
	if t.Unescalated {
		q = q.Where("escalated_at IS NULL")
	}
	if t.Unrated {
		q = q.Where("worker_rating IS NULL")
	}
	if t.DeadlineUntil != nil {
		q = q.Where("deadline IS NOT NULL AND deadline < ?", *t.DeadlineUntil)
	}
	return q
}

// applyTransition runs the conditional update inside tx. A row that exists but no
// longer matches the guards yields ErrStatusChanged.
func applyTransition(tx *gorm.DB, t Transition) (*models.Complaint, error) {
	updates := make(map[string]interface{}, len(t.Updates)+1)
	for k, v := range t.Updates {
		updates[k] = v
	}
	updates["updated_at"] = time.Now()

	res := transitionScope(tx.Model(&models.Complaint{}), t).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := getComplaint(tx, t.ComplaintID); err != nil {
			return nil, err
		}
		return nil, ErrStatusChanged
	}
	return getComplaint(tx, t.ComplaintID)
}

func (s *Service) TransitionComplaint(ctx context.Context, t Transition) (*models.Complaint, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	var out *models.Complaint
	err := db.Transaction(func(tx *gorm.DB) error {
		c, err := applyTransition(tx, t)
		out = c
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// CompleteTask applies t and credits the assigned worker with one completed task in
// the same transaction.
func (s *Service) CompleteTask(ctx context.Context, t Transition) (*models.Complaint, error) {
	if t.AssignedTo == "" {
		return nil, errors.New("complete task: worker is required")
	}
	db, cancel := s.db(ctx)
	defer cancel()

	var out *models.Complaint
	err := db.Transaction(func(tx *gorm.DB) error {
		c, err := applyTransition(tx, t)
		if err != nil {
			return err
		}
		res := tx.Model(&models.User{}).Where("id = ?", t.AssignedTo).
			UpdateColumn("completed_tasks", gorm.Expr("completed_tasks + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Service) FindOverdueComplaints(ctx context.Context, now time.Time) ([]models.Complaint, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	var complaints []models.Complaint
	err := db.Where("status IN ?", []models.ComplaintStatus{models.StatusAssigned, models.StatusInProgress}).
		Where("deadline IS NOT NULL AND deadline < ?", now).
		Order("deadline asc").
		Find(&complaints).Error
	if err != nil {
		return nil, err
	}
	return complaints, nil
}

func (s *Service) FindUnassignedComplaints(ctx context.Context, validatedBefore time.Time) ([]models.Complaint, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	var complaints []models.Complaint
	err := db.Where("status = ?", models.StatusValidated).
		Where("validated_at < ?", validatedBefore).
		Where("escalated_at IS NULL").
		Order("validated_at asc").
		Find(&complaints).Error
	if err != nil {
		return nil, err
	}
	return complaints, nil
}

// --- upvotes ---

func lockComplaint(tx *gorm.DB, id string) (*models.Complaint, error) {
	var c models.Complaint
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// AddUpvote records the vote and bumps the counter under a row lock on the complaint.
func (s *Service) AddUpvote(ctx context.Context, complaintID, userID string) (int, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	var count int
	err := db.Transaction(func(tx *gorm.DB) error {
		c, err := lockComplaint(tx, complaintID)
		if err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.Upvote{}).
			Where("complaint_id = ? AND user_id = ?", complaintID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateVote
		}

		if err := tx.Create(&models.Upvote{ComplaintID: complaintID, UserID: userID}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateVote
			}
			return err
		}

		count = models.FloorUpvotes(c.UpvoteCount + 1)
		return tx.Model(&models.Complaint{}).Where("id = ?", complaintID).
			UpdateColumn("upvote_count", count).Error
	})
	if err != nil {
		return 0, translate(err)
	}
	return count, nil
}

// RemoveUpvote deletes the vote and lowers the counter, never below the filer's own vote.
func (s *Service) RemoveUpvote(ctx context.Context, complaintID, userID string) (int, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	var count int
	err := db.Transaction(func(tx *gorm.DB) error {
		c, err := lockComplaint(tx, complaintID)
		if err != nil {
			return err
		}

		res := tx.Where("complaint_id = ? AND user_id = ?", complaintID, userID).Delete(&models.Upvote{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotVoted
		}

		count = models.FloorUpvotes(c.UpvoteCount - 1)
		return tx.Model(&models.Complaint{}).Where("id = ?", complaintID).
			UpdateColumn("upvote_count", count).Error
	})
	if err != nil {
		return 0, translate(err)
	}
	return count, nil
}

func (s *Service) UpvotedComplaintIDs(ctx context.Context, userID string, complaintIDs []string) (map[string]bool, error) {
	voted := make(map[string]bool)
	if len(complaintIDs) == 0 {
		return voted, nil
	}
	db, cancel := s.db(ctx)
	defer cancel()

	var ids []string
	err := db.Model(&models.Upvote{}).
		Where("user_id = ? AND complaint_id IN ?", userID, complaintIDs).
		Pluck("complaint_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		voted[id] = true
	}
	return voted, nil
}

// --- ratings ---

// RecordWorkerRating stores the rating on the complaint, appends the rating row and
// folds it into the worker's aggregates, all in one transaction with the complaint
// and the worker locked. It returns the updated worker.
func (s *Service) RecordWorkerRating(ctx context.Context, r *models.WorkerRating) (*models.User, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	var worker models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		c, err := lockComplaint(tx, r.ComplaintID)
		if err != nil {
			return err
		}
		if c.WorkerRating != nil {
			return ErrAlreadyRated
		}
		if c.Status != models.StatusCompleted {
			return ErrStatusChanged
		}

		if err := tx.Create(r).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyRated
			}
			return err
		}

		now := time.Now()
		if err := tx.Model(&models.Complaint{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
			"worker_rating": r.Rating,
			"rated_by":      r.RatedBy,
			"rated_at":      now,
			"updated_at":    now,
		}).Error; err != nil {
			return err
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", r.WorkerID).First(&worker).Error; err != nil {
			return err
		}
		worker.ApplyRating(r.Rating)
		return tx.Model(&models.User{}).Where("id = ?", worker.ID).Updates(map[string]interface{}{
			"rating_sum":     worker.RatingSum,
			"total_ratings":  worker.TotalRatings,
			"average_rating": worker.AverageRating,
		}).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &worker, nil
}

// ListWorkerRatings returns the newest ratings first. limit <= 0 returns all.
func (s *Service) ListWorkerRatings(ctx context.Context, workerID string, limit int) ([]models.WorkerRating, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	q := db.Where("worker_id = ?", workerID).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var ratings []models.WorkerRating
	if err := q.Find(&ratings).Error; err != nil {
		return nil, err
	}
	return ratings, nil
}

// --- history ---

func (s *Service) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	db, cancel := s.db(ctx)
	defer cancel()
	return db.Create(entry).Error
}

// ListHistory returns entries newest first.
func (s *Service) ListHistory(ctx context.Context, complaintID string) ([]models.HistoryEntry, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	var entries []models.HistoryEntry
	err := db.Where("complaint_id = ?", complaintID).Order("created_at desc").Order("id desc").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// --- notifications ---

func (s *Service) CreateNotification(ctx context.Context, n *models.Notification) error {
	db, cancel := s.db(ctx)
	defer cancel()
	return db.Create(n).Error
}

// PublishNotification pushes n to the recipient's Redis channel for realtime delivery.
func (s *Service) PublishNotification(ctx context.Context, n *models.Notification) error {
	if s.Redis == nil {
		return nil
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	if err := s.Redis.Publish(ctx, NotificationChannelPrefix+n.UserID, payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// SubscribeNotifications subscribes to every user's notification channel.
func (s *Service) SubscribeNotifications(ctx context.Context) *redis.PubSub {
	return s.Redis.PSubscribe(ctx, NotificationChannelPrefix+"*")
}

func (s *Service) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	q := db.Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var list []models.Notification
	if err := q.Order("created_at desc").Order("id desc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Service) MarkNotificationRead(ctx context.Context, userID string, id uint) error {
	db, cancel := s.db(ctx)
	defer cancel()

	res := db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	res := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
