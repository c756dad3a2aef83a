package notify_test

import (
	"context"
	"errors"
	"testing"

	"hostelgrievance/backend/internal/models"
	"hostelgrievance/backend/internal/notify"
	"hostelgrievance/backend/internal/storage/storagetest"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) Name() string { return "mock" }

func (m *MockChannel) Deliver(ctx context.Context, recipient *models.User, n *models.Notification) error {
	args := m.Called(ctx, recipient, n)
	return args.Error(0)
}

func TestEnqueue_PersistsPublishesAndDelivers(t *testing.T) {
	store := storagetest.NewMemory()
	user := store.PutUser(models.User{StudentID: "A1", Name: "Warden", Role: models.RoleAdmin})
	log, hook := test.NewNullLogger()

	ch := new(MockChannel)
	ch.On("Deliver", mock.Anything, mock.MatchedBy(func(u *models.User) bool { return u.ID == user.ID }), mock.AnythingOfType("*models.Notification")).
		Return(nil).Once()

	sink := notify.NewSink(store, log, nil, ch)
	sink.Enqueue(context.Background(), user.ID, "c-1", "hello")
	sink.Wait()

	stored := store.Notifications()
	require.Len(t, stored, 1)
	assert.Equal(t, "hello", stored[0].Message)
	require.NotNil(t, stored[0].ComplaintID)
	assert.Equal(t, "c-1", *stored[0].ComplaintID)
	assert.Len(t, store.Published, 1)
	assert.Empty(t, hook.AllEntries())
	ch.AssertExpectations(t)
}

func TestEnqueue_StoreFailureIsSwallowed(t *testing.T) {
	store := storagetest.NewMemory()
	store.Fail["CreateNotification"] = errors.New("db down")
	log, hook := test.NewNullLogger()
	ch := new(MockChannel)

	sink := notify.NewSink(store, log, nil, ch)
	assert.NotPanics(t, func() {
		sink.Enqueue(context.Background(), "u-1", "", "hello")
	})
	sink.Wait()

	assert.Empty(t, store.Published)
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	ch.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnqueue_ChannelFailureIsLogged(t *testing.T) {
	store := storagetest.NewMemory()
	user := store.PutUser(models.User{StudentID: "A1", Name: "Warden", Role: models.RoleAdmin})
	log, hook := test.NewNullLogger()

	ch := new(MockChannel)
	ch.On("Deliver", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("telegram down"))

	sink := notify.NewSink(store, log, nil, ch)
	sink.Enqueue(context.Background(), user.ID, "c-1", "hello")
	sink.Wait()

	assert.Len(t, store.Notifications(), 1)
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "mock", hook.LastEntry().Data["channel"])
}
