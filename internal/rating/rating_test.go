package rating_test

import (
	"context"
	"errors"
	"testing"

	"hostelgrievance/backend/internal/apperror"
	"hostelgrievance/backend/internal/models"
	"hostelgrievance/backend/internal/rating"
	"hostelgrievance/backend/internal/storage/storagetest"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc      *rating.Service
	store    *storagetest.Memory
	resident *models.User
	worker   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storagetest.NewMemory()
	log, _ := test.NewNullLogger()
	return &fixture{
		svc:      rating.NewService(store, nil, log),
		store:    store,
		resident: store.PutUser(models.User{StudentID: "S1", Name: "Asha", Role: models.RoleResident}),
		worker:   store.PutUser(models.User{StudentID: "W1", Name: "Ravi", Role: models.RoleWorker}),
	}
}

func (f *fixture) completed() *models.Complaint {
	return f.store.PutComplaint(models.Complaint{
		UserID: f.resident.ID, Title: "Leak", Location: "Block A", Status: models.StatusCompleted,
		AssignedTo: &f.worker.ID, UpvoteCount: 1,
	})
}

func TestRate_Bounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, r := range []int{0, 6} {
		_, err := f.svc.Rate(ctx, f.resident.ID, f.completed().ID, rating.RateInput{Rating: r})
		assert.True(t, apperror.Is(err, apperror.KindValidation), "rating %d", r)
	}
	for _, r := range []int{1, 5} {
		_, err := f.svc.Rate(ctx, f.resident.ID, f.completed().ID, rating.RateInput{Rating: r})
		assert.NoError(t, err, "rating %d", r)
	}
	assert.Len(t, f.store.Ratings(), 2)
}

func TestRate_ExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.completed()

	w, err := f.svc.Rate(ctx, f.resident.ID, c.ID, rating.RateInput{Rating: 4, Feedback: "  quick fix "})
	require.NoError(t, err)
	assert.Equal(t, 4.0, w.AverageRating)
	assert.Equal(t, 1, w.TotalRatings)

	_, err = f.svc.Rate(ctx, f.resident.ID, c.ID, rating.RateInput{Rating: 1})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	ratings := f.store.Ratings()
	require.Len(t, ratings, 1)
	assert.Equal(t, "quick fix", ratings[0].Feedback)

	stored, err := f.store.GetUserByID(ctx, f.worker.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, stored.AverageRating)
	assert.Equal(t, 1, stored.TotalRatings)

	got, err := f.store.GetComplaint(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.WorkerRating)
	assert.Equal(t, 4, *got.WorkerRating)
	assert.Equal(t, f.resident.ID, *got.RatedBy)
}

func TestRate_AverageIsRounded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var w *models.User
	var err error
	for _, r := range []int{5, 4, 4} {
		w, err = f.svc.Rate(ctx, f.resident.ID, f.completed().ID, rating.RateInput{Rating: r})
		require.NoError(t, err)
	}
	assert.Equal(t, 4.33, w.AverageRating)
	assert.Equal(t, 3, w.TotalRatings)
}

func TestRate_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.store.PutUser(models.User{StudentID: "S2", Role: models.RoleResident})

	_, err := f.svc.Rate(ctx, f.resident.ID, "missing", rating.RateInput{Rating: 3})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = f.svc.Rate(ctx, other.ID, f.completed().ID, rating.RateInput{Rating: 3})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	inProgress := f.store.PutComplaint(models.Complaint{UserID: f.resident.ID, Status: models.StatusInProgress, AssignedTo: &f.worker.ID})
	_, err = f.svc.Rate(ctx, f.resident.ID, inProgress.ID, rating.RateInput{Rating: 3})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	unassigned := f.store.PutComplaint(models.Complaint{UserID: f.resident.ID, Status: models.StatusCompleted})
	_, err = f.svc.Rate(ctx, f.resident.ID, unassigned.ID, rating.RateInput{Rating: 3})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	assert.Empty(t, f.store.Ratings())
}

func TestRate_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.Fail["RecordWorkerRating"] = errors.New("connection reset")

	_, err := f.svc.Rate(context.Background(), f.resident.ID, f.completed().ID, rating.RateInput{Rating: 3})
	assert.True(t, apperror.Is(err, apperror.KindDependency))
}

func TestWorkerPerformance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	best := f.store.PutUser(models.User{StudentID: "W2", Name: "Meera", Role: models.RoleWorker, AverageRating: 4.8})
	f.store.PutComplaint(models.Complaint{UserID: f.resident.ID, Status: models.StatusInProgress, AssignedTo: &f.worker.ID})
	for i := 0; i < 6; i++ {
		_, err := f.svc.Rate(ctx, f.resident.ID, f.completed().ID, rating.RateInput{Rating: 3})
		require.NoError(t, err)
	}

	list, err := f.svc.WorkerPerformance(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, best.ID, list[0].ID)
	assert.Empty(t, list[0].RecentRatings)

	p := list[1]
	assert.Equal(t, f.worker.ID, p.ID)
	assert.Equal(t, 3.0, p.AverageRating)
	assert.Equal(t, 6, p.TotalRatings)
	assert.Equal(t, int64(7), p.AssignedTasks)
	assert.Equal(t, int64(1), p.InProgressTasks)
	assert.Len(t, p.RecentRatings, 5)
}

func TestWorkerDetailsAndProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.PutComplaint(models.Complaint{UserID: f.resident.ID, Status: models.StatusAssigned, AssignedTo: &f.worker.ID})
	c := f.completed()
	_, err := f.svc.Rate(ctx, f.resident.ID, c.ID, rating.RateInput{Rating: 5})
	require.NoError(t, err)

	d, err := f.svc.WorkerDetails(ctx, f.worker.ID)
	require.NoError(t, err)
	assert.Len(t, d.Ratings, 1)
	assert.Len(t, d.Tasks, 2)
	assert.Equal(t, rating.TaskStats{TotalAssigned: 2, Completed: 1, Pending: 1}, d.Stats)

	_, err = f.svc.WorkerDetails(ctx, f.resident.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	p, err := f.svc.WorkerProfile(ctx, f.worker.ID)
	require.NoError(t, err)
	assert.Equal(t, f.worker.ID, p.Profile.ID)
	require.Len(t, p.CompletedTasks, 1)
	assert.Equal(t, c.ID, p.CompletedTasks[0].ID)
}
