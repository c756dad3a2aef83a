package main

import (
	"context"
	"testing"
	"time"

	"hostelgrievance/backend/internal/models"
	"hostelgrievance/backend/internal/storage/storagetest"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackfillRoles(t *testing.T) {
	store := storagetest.NewMemory()
	ctx := context.Background()
	warden := store.PutUser(models.User{StudentID: "A1", Name: "Chief Warden Rao", Role: models.RoleAdmin})
	ambiguous := store.PutUser(models.User{StudentID: "A2", Name: "Warden Supervisor", Role: models.RoleAdmin})
	store.PutUser(models.User{StudentID: "A3", Name: "Office Clerk", Role: models.RoleAdmin})
	store.PutUser(models.User{StudentID: "A4", Name: "Dean Supervisor", Role: models.RoleAdmin, AdminRole: models.AdminRoleDean})
	store.PutUser(models.User{StudentID: "S1", Name: "Warden's nephew", Role: models.RoleResident})

	res, err := backfillRoles(ctx, store, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	got, _ := store.GetUserByID(ctx, warden.ID)
	assert.Equal(t, models.AdminRoleNone, got.AdminRole, "dry run writes nothing")

	res, err = backfillRoles(ctx, store, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Unmatched)
	require.Len(t, res.Ambiguous, 1)
	assert.Equal(t, ambiguous.ID, res.Ambiguous[0].UserID)

	got, _ = store.GetUserByID(ctx, warden.ID)
	assert.Equal(t, models.AdminRoleWarden, got.AdminRole)
}

func TestLinkTelegram(t *testing.T) {
	store := storagetest.NewMemory()
	ctx := context.Background()
	u := store.PutUser(models.User{StudentID: "S1", Name: "Asha", Role: models.RoleResident})

	require.NoError(t, linkTelegram(ctx, store, "S1", 424242))
	got, _ := store.GetUserByID(ctx, u.ID)
	require.NotNil(t, got.TelegramChatID)
	assert.Equal(t, int64(424242), *got.TelegramChatID)

	assert.Error(t, linkTelegram(ctx, store, "nobody", 1))
}

func TestRunSweep(t *testing.T) {
	store := storagetest.NewMemory()
	log, _ := test.NewNullLogger()
	ctx := context.Background()
	now := time.Now()
	validatedAt := now.Add(-72 * time.Hour)
	store.PutComplaint(models.Complaint{Title: "Lights", Status: models.StatusValidated, ValidatedAt: &validatedAt, UpvoteCount: 1})

	n, err := runSweep(ctx, store, log, 48*time.Hour, "deadline", now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = runSweep(ctx, store, log, 48*time.Hour, "all", now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = runSweep(ctx, store, log, 48*time.Hour, "weekly", now)
	assert.Error(t, err)
}
