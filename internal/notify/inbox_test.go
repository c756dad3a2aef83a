package notify_test

import (
	"context"
	"testing"

	"hostelgrievance/backend/internal/apperror"
	"hostelgrievance/backend/internal/notify"
	"hostelgrievance/backend/internal/storage/storagetest"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInbox(t *testing.T) {
	store := storagetest.NewMemory()
	log, _ := test.NewNullLogger()
	sink := notify.NewSink(store, log, nil)
	inbox := notify.NewInbox(store)
	ctx := context.Background()

	sink.Enqueue(ctx, "u1", "c1", "first")
	sink.Enqueue(ctx, "u1", "", "second")
	sink.Enqueue(ctx, "u2", "c1", "other")

	list, err := inbox.List(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Message)

	err = inbox.MarkRead(ctx, "u2", list[0].ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	require.NoError(t, inbox.MarkRead(ctx, "u1", list[0].ID))

	unread, err := inbox.List(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "first", unread[0].Message)

	n, err := inbox.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	unread, err = inbox.List(ctx, "u1", true)
	require.NoError(t, err)
	assert.Empty(t, unread)
	assert.NotNil(t, unread)
}
