// Command escalator runs both escalation sweeps on a cron schedule.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hostelgrievance/backend/internal/config"
	"hostelgrievance/backend/internal/escalation"
	"hostelgrievance/backend/internal/history"
	"hostelgrievance/backend/internal/logger"
	"hostelgrievance/backend/internal/metrics"
	"hostelgrievance/backend/internal/notify"
	"hostelgrievance/backend/internal/storage"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const sweepTimeout = 4 * time.Minute

type sweeper interface {
	RunAll(ctx context.Context, now time.Time) (deadline, unassigned int, err error)
}

var _ sweeper = (*escalation.Scheduler)(nil)

func main() {
	log := logger.New("grievance-escalator")
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect PostgreSQL")
	}
	s := storage.NewStorageService(db, nil, cfg.StoreTimeout)
	if rdb, err := storage.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword); err != nil {
		log.WithError(err).Warn("redis unavailable, escalation notices will not be pushed")
	} else {
		defer rdb.Close()
		s.Redis = rdb
	}

	m := metrics.New("grievance")
	sink := notify.NewSink(s, log, m)
	sched := escalation.NewScheduler(s, history.NewLogger(s, log, m), sink, m, log, cfg.UnassignedGrace)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))))
	if err := schedule(c, cfg.EscalationCron, sched, log, time.Now); err != nil {
		log.WithError(err).Fatal("invalid escalation schedule")
	}
	log.WithFields(logrus.Fields{
		"schedule": cfg.EscalationCron,
		"grace":    cfg.UnassignedGrace.String(),
	}).Info("escalator started")
	c.Start()

	<-ctx.Done()
	log.Info("escalator stopping, waiting for a running sweep")
	<-c.Stop().Done()
	sink.Wait()
}

// schedule registers one job that runs both sweeps.
func schedule(c *cron.Cron, expr string, sw sweeper, log logrus.FieldLogger, now func() time.Time) error {
	_, err := c.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		started := now()
		deadline, unassigned, err := sw.RunAll(ctx, started)
		entry := log.WithFields(logrus.Fields{
			"deadline":   deadline,
			"unassigned": unassigned,
			"duration":   time.Since(started).String(),
		})
		if err != nil {
			entry.WithError(err).Error("escalation sweep finished with errors")
			return
		}
		entry.Info("escalation sweep complete")
	})
	return err
}
