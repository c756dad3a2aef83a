package upvote_test

import (
	"context"
	"fmt"
	"testing"

	"hostelgrievance/backend/internal/apperror"
	"hostelgrievance/backend/internal/models"
	"hostelgrievance/backend/internal/storage/storagetest"
	"hostelgrievance/backend/internal/upvote"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*upvote.Service, *storagetest.Memory, *models.Complaint) {
	t.Helper()
	store := storagetest.NewMemory()
	log, _ := test.NewNullLogger()
	c := store.PutComplaint(models.Complaint{
		UserID: "filer", Title: "Leak", Category: "plumbing", Location: "Block A - 101",
		Status: models.StatusPending, UpvoteCount: 1,
	})
	return upvote.NewService(store, log), store, c
}

func TestUpvote_DuplicateIsConflictAndCountUnchanged(t *testing.T) {
	svc, store, c := setup(t)
	ctx := context.Background()

	n, err := svc.Upvote(ctx, "r1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = svc.Upvote(ctx, "r1", c.ID)
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	got, err := store.GetComplaint(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UpvoteCount)
}

func TestRemoveUpvote_FloorAndNotVoted(t *testing.T) {
	svc, _, c := setup(t)
	ctx := context.Background()

	_, err := svc.RemoveUpvote(ctx, "r1", c.ID)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = svc.Upvote(ctx, "r1", c.ID)
	require.NoError(t, err)
	n, err := svc.RemoveUpvote(ctx, "r1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpvote_FilerAndClosedComplaints(t *testing.T) {
	svc, store, c := setup(t)
	ctx := context.Background()

	_, err := svc.Upvote(ctx, "filer", c.ID)
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	closed := store.PutComplaint(models.Complaint{UserID: "filer", Location: "Block A", Status: models.StatusResolved, UpvoteCount: 1})
	_, err = svc.Upvote(ctx, "r1", closed.ID)
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	_, err = svc.Upvote(ctx, "r1", "missing")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestCandidates(t *testing.T) {
	svc, store, c := setup(t)
	ctx := context.Background()
	popular := store.PutComplaint(models.Complaint{UserID: "x", Location: "block a - 202", Status: models.StatusAssigned, UpvoteCount: 5})
	store.PutComplaint(models.Complaint{UserID: "x", Location: "Block A - 303", Status: models.StatusCompleted, UpvoteCount: 9})
	store.PutComplaint(models.Complaint{UserID: "x", Location: "Block B - 101", Status: models.StatusPending, UpvoteCount: 9})
	_, err := svc.Upvote(ctx, "r1", c.ID)
	require.NoError(t, err)

	_, err = svc.Candidates(ctx, "r1", " ")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	list, err := svc.Candidates(ctx, "r1", "Block A")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, popular.ID, list[0].ID)
	assert.False(t, list[0].UserUpvoted)
	assert.Equal(t, c.ID, list[1].ID)
	assert.True(t, list[1].UserUpvoted)
}

// op is one vote (Up) or unvote by resident Voter.
type op struct {
	Voter int
	Up    bool
}

func TestUpvoteCountNeverBelowOne(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	genOp := gopter.CombineGens(gen.IntRange(0, 3), gen.Bool()).Map(func(v []interface{}) op {
		return op{Voter: v[0].(int), Up: v[1].(bool)}
	})

	properties.Property("upvote_count >= 1 and equals 1 + current voters", prop.ForAll(
		func(ops []op) bool {
			svc, store, c := setup(t)
			ctx := context.Background()
			voted := map[int]bool{}

			for _, o := range ops {
				voter := fmt.Sprintf("r%d", o.Voter)
				var n int
				var err error
				if o.Up {
					n, err = svc.Upvote(ctx, voter, c.ID)
					if voted[o.Voter] != (err != nil) {
						return false
					}
					voted[o.Voter] = true
				} else {
					n, err = svc.RemoveUpvote(ctx, voter, c.ID)
					if voted[o.Voter] == (err != nil) {
						return false
					}
					delete(voted, o.Voter)
				}
				if err == nil && n < 1 {
					return false
				}
			}

			got, err := store.GetComplaint(ctx, c.ID)
			return err == nil && got.UpvoteCount >= 1 && got.UpvoteCount == 1+len(voted)
		},
		gen.SliceOf(genOp),
	))

	properties.TestingRun(t)
}
