package models_test

import (
	"reflect"
	"sync"
	"testing"

	"hostelgrievance/backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

// TestUserBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID.
func TestUserBeforeCreate_GeneratesUUID(t *testing.T) {
	user := &models.User{StudentID: "S-1001", Name: "Asha", Role: models.RoleResident}
	assert.Empty(t, user.ID)

	err := user.BeforeCreate(nil) // nil *gorm.DB is acceptable for this hook

	assert.NoError(t, err)
	parsed, parseErr := uuid.Parse(user.ID)
	assert.NoError(t, parseErr)
	assert.NotEqual(t, uuid.Nil, parsed)
}

// TestBeforeCreate_PreservesExistingID verifies that the hooks don't overwrite an existing ID.
func TestBeforeCreate_PreservesExistingID(t *testing.T) {
	existing := uuid.New().String()

	user := &models.User{ID: existing}
	complaint := &models.Complaint{ID: existing}

	assert.NoError(t, user.BeforeCreate(nil))
	assert.NoError(t, complaint.BeforeCreate(nil))
	assert.Equal(t, existing, user.ID)
	assert.Equal(t, existing, complaint.ID)
}

func TestComplaintBeforeCreate_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		c := &models.Complaint{}
		assert.NoError(t, c.BeforeCreate(nil))
		assert.NotContains(t, seen, c.ID)
		seen[c.ID] = true
	}
}

func TestFloorUpvotes(t *testing.T) {
	assert.Equal(t, 1, models.FloorUpvotes(-3))
	assert.Equal(t, 1, models.FloorUpvotes(0))
	assert.Equal(t, 1, models.FloorUpvotes(1))
	assert.Equal(t, 7, models.FloorUpvotes(7))
}

func TestComplaintOpenAndClosed(t *testing.T) {
	tests := []struct {
		status models.ComplaintStatus
		open   bool
		closed bool
	}{
		{models.StatusPending, true, false},
		{models.StatusValidated, true, false},
		{models.StatusAssigned, true, false},
		{models.StatusInProgress, true, false},
		{models.StatusEmergency, false, false},
		{models.StatusEscalated, false, false},
		{models.StatusCompleted, false, true},
		{models.StatusResolved, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			c := &models.Complaint{Status: tt.status}
			assert.Equal(t, tt.open, c.IsOpen())
			assert.Equal(t, tt.closed, c.IsClosed())
			assert.True(t, tt.status.Valid())
		})
	}

	assert.False(t, models.ComplaintStatus("archived").Valid())
}

func TestAdminRoleValid(t *testing.T) {
	for _, r := range []models.AdminRole{models.AdminRoleValidator, models.AdminRoleSupervisor, models.AdminRoleWarden, models.AdminRoleDean} {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, models.AdminRoleNone.Valid())
	assert.False(t, models.AdminRole("janitor").Valid())
}

// TestStructTags catches accidental removal of the constraints the store relies on.
func TestStructTags(t *testing.T) {
	userType := reflect.TypeOf(models.User{})
	sid, ok := userType.FieldByName("StudentID")
	assert.True(t, ok)
	assert.Contains(t, sid.Tag.Get("gorm"), "uniqueIndex")

	pw, ok := userType.FieldByName("PasswordHash")
	assert.True(t, ok)
	assert.Equal(t, "-", pw.Tag.Get("json"), "password hash must never be serialised")

	upvoteType := reflect.TypeOf(models.Upvote{})
	for _, name := range []string{"ComplaintID", "UserID"} {
		f, ok := upvoteType.FieldByName(name)
		assert.True(t, ok)
		assert.Contains(t, f.Tag.Get("gorm"), "uniqueIndex:idx_upvote_pair")
	}
}

func TestKeywords_ValueAndScan(t *testing.T) {
	kw := models.Keywords{"fire", "short circuit"}
	v, err := kw.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"fire","short circuit"}`, v)

	var back models.Keywords
	require.NoError(t, back.Scan(v))
	assert.Equal(t, kw, back)

	var empty models.Keywords
	v, err = empty.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestUserApplyRating(t *testing.T) {
	var u models.User
	u.ApplyRating(5)
	u.ApplyRating(4)
	u.ApplyRating(4)

	assert.Equal(t, 13, u.RatingSum)
	assert.Equal(t, 3, u.TotalRatings)
	assert.Equal(t, 4.33, u.AverageRating)
}

// TestSchemaParse makes sure gorm can map every model before AutoMigrate runs.
func TestSchemaParse(t *testing.T) {
	cache := &sync.Map{}
	for _, m := range models.All() {
		s, err := schema.Parse(m, cache, schema.NamingStrategy{})
		require.NoError(t, err, reflect.TypeOf(m).String())
		assert.NotEmpty(t, s.Table)
	}

	s, err := schema.Parse(&models.Complaint{}, cache, schema.NamingStrategy{})
	require.NoError(t, err)
	field := s.LookUpField("EmergencyKeywords")
	require.NotNil(t, field)
	assert.Equal(t, schema.DataType("text"), field.DataType)
	assert.Equal(t, "emergency_keywords", field.DBName)
	assert.Empty(t, s.Relationships.Relations, "complaint has no associations")
}
