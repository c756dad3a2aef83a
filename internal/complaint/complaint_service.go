// Package complaint implements the complaint lifecycle: filing, the emergency
// fast path, role-gated transitions and the read models built on them.
package complaint

import (
	"context"
	"strings"
	"time"

	"hostelgrievance/backend/internal/analysis"
	"hostelgrievance/backend/internal/apperror"
	"hostelgrievance/backend/internal/config"
	"hostelgrievance/backend/internal/localization"
	"hostelgrievance/backend/internal/models"
	"hostelgrievance/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Notifier enqueues a notification. It never fails the caller.
type Notifier interface {
	Enqueue(ctx context.Context, userID, complaintID, message string)
}

// Recorder appends history. It never fails the caller.
type Recorder interface {
	Record(ctx context.Context, complaintID, action, actor string, from, to models.ComplaintStatus, notes string)
}

// PhotoStore turns an uploaded photo into the URL stored on the complaint.
type PhotoStore interface {
	Save(ctx context.Context, kind, complaintID, payload string) string
}

// TransitionObserver counts lifecycle transitions by action.
type TransitionObserver interface {
	ObserveTransition(action string)
}

// Deps are the collaborators of Service. Photos and Metrics are optional.
type Deps struct {
	History         Recorder
	Notifier        Notifier
	Photos          PhotoStore
	Messages        *localization.Localizer
	Metrics         TransitionObserver
	Log             logrus.FieldLogger
	DefaultDeadline time.Duration
}

// Service handles the business logic for complaints.
type Service struct {
	Storage storage.Storage
	Deps
	Now func() time.Time
}

// NewService creates a new complaint service.
func NewService(s storage.Storage, deps Deps) *Service {
	if deps.Messages == nil {
		deps.Messages = localization.Default()
	}
	if deps.DefaultDeadline <= 0 {
		deps.DefaultDeadline = config.DefaultDeadline
	}
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	return &Service{Storage: s, Deps: deps, Now: time.Now}
}

// FileInput is a resident's submission.
type FileInput struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Category    string          `json:"category" validate:"required"`
	Location    string          `json:"location" validate:"required"`
	Priority    models.Priority `json:"priority" validate:"omitempty,oneof=low medium high"`
	Image       string          `json:"image_url"`
}

func (in *FileInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Location = strings.TrimSpace(in.Location)
}

// File records a new complaint in the pending state. A description mentioning an
// emergency keyword marks it as an emergency and forces high priority.
func (s *Service) File(ctx context.Context, residentID string, in FileInput) (*models.Complaint, error) {
	in.normalize()
	if err := apperror.Validate(in); err != nil {
		return nil, err
	}

	keywords := analysis.EmergencyKeywords(in.Description)
	isEmergency := len(keywords) > 0
	c := &models.Complaint{
		ID:                uuid.New().String(),
		UserID:            residentID,
		Title:             in.Title,
		Description:       in.Description,
		Category:          in.Category,
		Location:          in.Location,
		IsEmergency:       isEmergency,
		EmergencyKeywords: keywords,
		Priority:          analysis.FilingPriority(isEmergency, in.Priority),
		Status:            models.StatusPending,
		UpvoteCount:       1,
	}
	s.attachImage(ctx, c, in.Image)

	if err := s.Storage.CreateComplaint(ctx, c); err != nil {
		return nil, storage.Classify(err, "complaint")
	}

	s.History.Record(ctx, c.ID, models.ActionFiled, residentID, "", c.Status, s.msg("history.filed"))
	s.observe(models.ActionFiled)
	return c, nil
}

// FileEmergency records an emergency that skips triage, then alerts the wardens
// and validators of the resident's hostel.
func (s *Service) FileEmergency(ctx context.Context, residentID string, in FileInput) (*models.Complaint, error) {
	in.normalize()
	if err := apperror.Validate(in); err != nil {
		return nil, err
	}

	resident, err := s.Storage.GetUserByID(ctx, residentID)
	if err != nil {
		return nil, storage.Classify(err, "user")
	}

	c := &models.Complaint{
		ID:                uuid.New().String(),
		UserID:            residentID,
		Title:             in.Title,
		Description:       in.Description,
		Category:          in.Category,
		Location:          in.Location,
		IsEmergency:       true,
		EmergencyKeywords: analysis.EmergencyKeywords(in.Description),
		Priority:          models.PriorityHigh,
		Status:            models.StatusEmergency,
		UpvoteCount:       1,
	}
	s.attachImage(ctx, c, in.Image)

	if err := s.Storage.CreateComplaint(ctx, c); err != nil {
		return nil, storage.Classify(err, "complaint")
	}

	s.History.Record(ctx, c.ID, models.ActionEmergencyFiled, residentID, "", c.Status,
		s.msg("history.emergency.filed", resident.Hostel))
	s.observe(models.ActionEmergencyFiled)
	s.alertHostel(ctx, resident, c)
	return c, nil
}

func (s *Service) alertHostel(ctx context.Context, resident *models.User, c *models.Complaint) {
	admins, err := s.Storage.FindAdmins(ctx, []models.AdminRole{models.AdminRoleWarden, models.AdminRoleValidator}, resident.Hostel)
	if err != nil {
		s.Log.WithError(err).WithField("complaint_id", c.ID).Error("could not look up hostel admins for emergency")
		return
	}

	for _, admin := range admins {
		key := "notify.emergency.warden"
		if admin.AdminRole == models.AdminRoleValidator {
			key = "notify.emergency.validator"
		}
		s.Notifier.Enqueue(ctx, admin.ID, c.ID, s.msg(key, c.Title, c.Location, resident.Name))
	}
}

func (s *Service) attachImage(ctx context.Context, c *models.Complaint, payload string) {
	if payload == "" {
		return
	}
	url := payload
	if s.Photos != nil {
		url = s.Photos.Save(ctx, "complaint", c.ID, payload)
	}
	c.ImageURL = &url
}

// loadActor reads the caller fresh so role changes apply on the next request.
func (s *Service) loadActor(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.Storage.GetUserByID(ctx, userID)
	if err != nil {
		if apperror.Is(storage.Classify(err, "user"), apperror.KindNotFound) {
			return nil, apperror.Auth("user no longer exists")
		}
		return nil, storage.Classify(err, "user")
	}
	return u, nil
}

func (s *Service) loadAdmin(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.loadActor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Role != models.RoleAdmin {
		return nil, apperror.Forbidden("admin access required")
	}
	return u, nil
}

func (s *Service) msg(key string, args ...interface{}) string {
	return s.Messages.Format(localization.DefaultLanguage, key, args...)
}

func (s *Service) observe(action string) {
	if s.Metrics != nil {
		s.Metrics.ObserveTransition(action)
	}
}
