// Package roles resolves a user's functional admin role.
package roles

import (
	"fmt"
	"strings"

	"hostelgrievance/backend/internal/models"
)

// Resolve returns the functional admin role of u. Only admins carry one.
// It reads the stored admin_role column and never the display name.
func Resolve(u *models.User) models.AdminRole {
	if u == nil || u.Role != models.RoleAdmin || !u.AdminRole.Valid() {
		return models.AdminRoleNone
	}
	return u.AdminRole
}

// Has reports whether u resolves to one of allowed.
func Has(u *models.User, allowed ...models.AdminRole) bool {
	r := Resolve(u)
	if r == models.AdminRoleNone {
		return false
	}
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// legacyTitles is the precedence legacy deployments applied to display names.
var legacyTitles = []struct {
	title string
	role  models.AdminRole
}{
	{"Validator", models.AdminRoleValidator},
	{"Supervisor", models.AdminRoleSupervisor},
	{"Warden", models.AdminRoleWarden},
	{"Dean", models.AdminRoleDean},
}

// AmbiguousNameError is returned when a display name carries more than one title.
type AmbiguousNameError struct {
	Name    string
	Matches []models.AdminRole
}

func (e *AmbiguousNameError) Error() string {
	return fmt.Sprintf("name %q matches several admin titles %v", e.Name, e.Matches)
}

// LegacyFromName derives an admin role from a display name the way older
// deployments did. It is only used to backfill admin_role. A name carrying more
// than one title is refused instead of being resolved by precedence.
func LegacyFromName(name string) (models.AdminRole, error) {
	var matches []models.AdminRole
	for _, t := range legacyTitles {
		if strings.Contains(name, t.title) {
			matches = append(matches, t.role)
		}
	}
	switch len(matches) {
	case 0:
		return models.AdminRoleNone, nil
	case 1:
		return matches[0], nil
	}
	return models.AdminRoleNone, &AmbiguousNameError{Name: name, Matches: matches}
}
