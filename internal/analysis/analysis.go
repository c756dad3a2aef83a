// Package analysis classifies complaints.
// It detects emergencies from the free-text description and decides the priority
// a complaint gets when it is filed and when it is validated.
package analysis

import (
	"strings"

	"hostelgrievance/backend/internal/config"
	"hostelgrievance/backend/internal/models"
)

// EmergencyKeywords returns every configured keyword found in description,
// matched case-insensitively, in configuration order.
func EmergencyKeywords(description string) []string {
	text := strings.ToLower(description)
	var found []string
	for _, kw := range config.EmergencyKeywords {
		if strings.Contains(text, kw) {
			found = append(found, kw)
		}
	}
	return found
}

// IsEmergency reports whether description mentions any emergency keyword.
func IsEmergency(description string) bool {
	return len(EmergencyKeywords(description)) > 0
}

// FilingPriority returns the priority of a newly filed complaint.
// Emergencies are always high. Otherwise the requested priority wins when valid.
func FilingPriority(isEmergency bool, requested models.Priority) models.Priority {
	if isEmergency {
		return models.PriorityHigh
	}
	if requested.Valid() {
		return requested
	}
	return models.Priority(config.DefaultPriority)
}

// ValidationPriority returns the priority set on validation. A recurring issue
// (more than FrequencyThreshold similar complaints in the window) is forced high.
func ValidationPriority(similar int64, requested, current models.Priority) models.Priority {
	if similar > config.FrequencyThreshold {
		return models.PriorityHigh
	}
	if requested.Valid() {
		return requested
	}
	return current
}
