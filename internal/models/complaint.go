package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ComplaintStatus is a state of the complaint lifecycle.
type ComplaintStatus string

const (
	StatusPending    ComplaintStatus = "pending"
	StatusEmergency  ComplaintStatus = "emergency"
	StatusValidated  ComplaintStatus = "validated"
	StatusAssigned   ComplaintStatus = "assigned"
	StatusInProgress ComplaintStatus = "in_progress"
	StatusEscalated  ComplaintStatus = "escalated"
	StatusCompleted  ComplaintStatus = "completed"
	StatusResolved   ComplaintStatus = "resolved"
)

// OpenStatuses are the states in which residents may still upvote a complaint.
var OpenStatuses = []ComplaintStatus{StatusPending, StatusValidated, StatusAssigned, StatusInProgress}

// Valid reports whether s is a known status.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case StatusPending, StatusEmergency, StatusValidated, StatusAssigned,
		StatusInProgress, StatusEscalated, StatusCompleted, StatusResolved:
		return true
	}
	return false
}

// Priority of a complaint.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ResolutionPath tells how a complaint reached a terminal-success state.
type ResolutionPath string

const (
	ResolutionNone         ResolutionPath = ""
	ResolutionVerification ResolutionPath = "verification"
	ResolutionEmergency    ResolutionPath = "emergency"
)

// Keywords is stored as a Postgres text[] column and as its array literal elsewhere.
type Keywords []string

func (k Keywords) Value() (driver.Value, error) {
	if k == nil {
		return nil, nil
	}
	return pq.StringArray(k).Value()
}

func (k *Keywords) Scan(src interface{}) error {
	return (*pq.StringArray)(k).Scan(src)
}

func (Keywords) GormDataType() string { return "text" }

func (Keywords) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// Complaint is a grievance filed by a resident.
type Complaint struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`

	Title       string  `gorm:"not null" json:"title"`
	Description string  `gorm:"type:text;not null" json:"description"`
	Category    string  `gorm:"not null;index:idx_complaint_category_location" json:"category"`
	Location    string  `gorm:"not null;index:idx_complaint_category_location" json:"location"`
	ImageURL    *string `gorm:"type:text" json:"image_url,omitempty"`

	IsEmergency       bool            `gorm:"not null;default:false;index" json:"is_emergency"`
	EmergencyKeywords Keywords        `json:"emergency_keywords,omitempty"`
	Priority          Priority        `gorm:"type:varchar(8);not null" json:"priority"`
	Status            ComplaintStatus `gorm:"type:varchar(16);not null;index" json:"status"`

	AssignedTo *string    `gorm:"type:uuid;index" json:"assigned_to,omitempty"`
	Deadline   *time.Time `gorm:"index" json:"deadline,omitempty"`

	ValidatedBy *string    `gorm:"type:uuid" json:"validated_by,omitempty"`
	ValidatedAt *time.Time `gorm:"index" json:"validated_at,omitempty"`

	EscalatedTo *AdminRole `gorm:"type:varchar(16)" json:"escalated_to,omitempty"`
	EscalatedAt *time.Time `json:"escalated_at,omitempty"`

	VerifiedBy        *string `gorm:"type:uuid" json:"verified_by,omitempty"`
	VerificationNotes string  `gorm:"type:text" json:"verification_notes,omitempty"`

	ResolvedBy      *string        `gorm:"type:uuid" json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
	ResolutionNotes string         `gorm:"type:text" json:"resolution_notes,omitempty"`
	ResolutionPath  ResolutionPath `gorm:"type:varchar(16)" json:"resolution_path,omitempty"`

	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	ProgressPhotoURL   string     `gorm:"type:text" json:"progress_photo_url,omitempty"`
	CompletionPhotoURL string     `gorm:"type:text" json:"completion_photo_url,omitempty"`
	ProofOfWork        string     `gorm:"type:text" json:"proof_of_work,omitempty"`
	CompletionNotes    string     `gorm:"type:text" json:"completion_notes,omitempty"`
	WorkerNotes        string     `gorm:"type:text" json:"worker_notes,omitempty"`

	WorkerRating *int       `json:"worker_rating,omitempty"`
	RatedBy      *string    `gorm:"type:uuid" json:"rated_by,omitempty"`
	RatedAt      *time.Time `json:"rated_at,omitempty"`

	// UpvoteCount includes the filer, so it is never below 1.
	UpvoteCount int `gorm:"not null;default:1" json:"upvote_count"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate generates a UUID for the complaint if ID is not set yet.
func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// IsClosed reports whether the complaint reached either terminal-success state.
func (c *Complaint) IsClosed() bool {
	return c.Status == StatusCompleted || c.Status == StatusResolved
}

// IsOpen reports whether the complaint still accepts upvotes.
func (c *Complaint) IsOpen() bool {
	for _, s := range OpenStatuses {
		if c.Status == s {
			return true
		}
	}
	return false
}

// FloorUpvotes clamps an upvote count to the filer's implicit vote.
func FloorUpvotes(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
