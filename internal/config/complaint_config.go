package config

import "time"

const (
	// Filing
	DefaultPriority = "medium"

	// Frequency-based prioritisation on validation
	FrequencyWindow    = 7 * 24 * time.Hour
	FrequencyThreshold = 3

	// Escalation
	DefaultUnassignedGrace = 48 * time.Hour
	DefaultDeadline        = 48 * time.Hour
	EscalationTarget       = "warden"

	// Rating
	MinRating = 1
	MaxRating = 5

	// Identity token
	TokenTTL    = 7 * 24 * time.Hour
	TokenIssuer = "hostel-grievance-service"

	// Store
	DefaultStoreTimeout = 5 * time.Second

	// Worker performance
	RecentRatingsLimit = 5
)

// EmergencyKeywords are matched case-insensitively against a complaint description.
var EmergencyKeywords = []string{
	"fire",
	"water leakage",
	"short circuit",
	"medical emergency",
	"urgent",
	"emergency",
}
