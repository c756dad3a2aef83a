package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the coarse role carried in the identity token.
type Role string

const (
	RoleResident Role = "resident"
	RoleWorker   Role = "worker"
	RoleAdmin    Role = "admin"
)

// AdminRole is the functional sub-role of an admin. It is set when the admin is provisioned.
type AdminRole string

const (
	AdminRoleNone       AdminRole = ""
	AdminRoleValidator  AdminRole = "validator"
	AdminRoleSupervisor AdminRole = "supervisor"
	AdminRoleWarden     AdminRole = "warden"
	AdminRoleDean       AdminRole = "dean"
)

// Valid reports whether r is one of the four functional admin roles.
func (r AdminRole) Valid() bool {
	switch r {
	case AdminRoleValidator, AdminRoleSupervisor, AdminRoleWarden, AdminRoleDean:
		return true
	}
	return false
}

// User is a resident, worker or admin.
type User struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	StudentID    string `gorm:"uniqueIndex;not null" json:"student_id"` // external id (student or staff number)
	Email        string `gorm:"not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Name         string `gorm:"not null" json:"name"`
	Hostel       string `gorm:"index" json:"hostel"`
	RoomNumber   string `json:"room_number"`

	Role      Role      `gorm:"type:varchar(16);not null;index" json:"role"`
	AdminRole AdminRole `gorm:"type:varchar(16);index" json:"admin_role,omitempty"`

	// TelegramChatID enables Telegram delivery of notifications for this user.
	TelegramChatID *int64 `json:"telegram_chat_id,omitempty"`

	// Worker aggregates. RatingSum and TotalRatings are maintained together so the
	// average never needs a rescan of worker_ratings.
	AverageRating  float64 `gorm:"not null;default:0" json:"average_rating"`
	RatingSum      int     `gorm:"not null;default:0" json:"-"`
	TotalRatings   int     `gorm:"not null;default:0" json:"total_ratings"`
	CompletedTasks int     `gorm:"not null;default:0" json:"completed_tasks"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate generates a UUID for the user if ID is not set yet.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// ApplyRating folds one rating into the running aggregates. The average is
// rounded to two decimals.
func (u *User) ApplyRating(rating int) {
	u.RatingSum += rating
	u.TotalRatings++
	u.AverageRating = math.Round(float64(u.RatingSum)/float64(u.TotalRatings)*100) / 100
}
