package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"hostelgrievance/backend/internal/escalation"
	"hostelgrievance/backend/internal/storage/storagetest"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) RunAll(ctx context.Context, now time.Time) (int, int, error) {
	s.calls.Add(1)
	return 3, 2, s.err
}

func TestSchedulerSatisfiesSweeper(t *testing.T) {
	var sw sweeper = escalation.NewScheduler(storagetest.NewMemory(), nil, nil, nil, nil, time.Hour)
	d, u, err := sw.RunAll(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, d+u)
}

func TestSchedule_RejectsBadSchedule(t *testing.T) {
	log, _ := test.NewNullLogger()
	err := schedule(cron.New(), "every tuesday", &countingSweeper{}, log, time.Now)
	assert.Error(t, err)
}

func TestSchedule_RunsSweeps(t *testing.T) {
	log, hook := test.NewNullLogger()
	sw := &countingSweeper{}
	c := cron.New()
	require.NoError(t, schedule(c, "@every 1s", sw, log, time.Now))

	entries := c.Entries()
	require.Len(t, entries, 1)
	entries[0].Job.Run()

	assert.Equal(t, int32(1), sw.calls.Load())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, 3, hook.LastEntry().Data["deadline"])
	assert.Equal(t, 2, hook.LastEntry().Data["unassigned"])
}

func TestSchedule_LogsSweepErrors(t *testing.T) {
	log, hook := test.NewNullLogger()
	sw := &countingSweeper{err: errors.New("store down")}
	c := cron.New()
	require.NoError(t, schedule(c, "@every 1s", sw, log, time.Now))

	c.Entries()[0].Job.Run()
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}
