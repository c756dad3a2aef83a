package models

import "time"

// Upvote is a resident's "me too" on a complaint. One row per (complaint, user).
type Upvote struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ComplaintID string    `gorm:"type:uuid;not null;uniqueIndex:idx_upvote_pair" json:"complaint_id"`
	UserID      string    `gorm:"type:uuid;not null;uniqueIndex:idx_upvote_pair;index" json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// WorkerRating is a resident's rating of the worker who completed their complaint.
type WorkerRating struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	WorkerID    string    `gorm:"type:uuid;not null;index" json:"worker_id"`
	ComplaintID string    `gorm:"type:uuid;not null;uniqueIndex" json:"complaint_id"`
	RatedBy     string    `gorm:"type:uuid;not null" json:"rated_by"`
	Rating      int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Feedback    string    `gorm:"type:text" json:"feedback,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// History actions.
const (
	ActionFiled                   = "filed"
	ActionEmergencyFiled          = "emergency_filed"
	ActionValidated               = "validated"
	ActionAssigned                = "assigned"
	ActionWorkStarted             = "work_started"
	ActionCompleted               = "completed"
	ActionVerified                = "verified"
	ActionVerificationRejected    = "verification_rejected"
	ActionEscalated               = "escalated"
	ActionAutoEscalatedDeadline   = "auto_escalated_deadline"
	ActionAutoEscalatedUnassigned = "auto_escalated_unassigned"
	ActionEmergencyResolved       = "emergency_resolved"
)

// HistoryEntry is an append-only audit record of a complaint transition.
type HistoryEntry struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	ComplaintID string          `gorm:"type:uuid;not null;index" json:"complaint_id"`
	Action      string          `gorm:"not null" json:"action"`
	PerformedBy *string         `gorm:"type:uuid" json:"performed_by,omitempty"` // nil for the scheduler
	FromStatus  ComplaintStatus `gorm:"type:varchar(16)" json:"from_status"`
	ToStatus    ComplaintStatus `gorm:"type:varchar(16)" json:"to_status"`
	Notes       string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

// TableName keeps the audit table name used by existing deployments.
func (HistoryEntry) TableName() string { return "complaint_history" }

// Notification is a message queued for a user.
type Notification struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"type:uuid;not null;index" json:"user_id"`
	ComplaintID *string   `gorm:"type:uuid" json:"complaint_id,omitempty"`
	Message     string    `gorm:"type:text;not null" json:"message"`
	IsRead      bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Complaint{},
		&Upvote{},
		&WorkerRating{},
		&HistoryEntry{},
		&Notification{},
	}
}
