package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"hostelgrievance/backend/internal/auth"
	"hostelgrievance/backend/internal/config"
	"hostelgrievance/backend/internal/escalation"
	"hostelgrievance/backend/internal/history"
	"hostelgrievance/backend/internal/logger"
	"hostelgrievance/backend/internal/models"
	"hostelgrievance/backend/internal/notify"
	"hostelgrievance/backend/internal/roles"
	"hostelgrievance/backend/internal/storage"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const usage = `Usage: admin <command> [args]

  create-admin <student_id> <email> <password> <name> <admin_role> [hostel]
  create-worker <student_id> <email> <password> <name>
  backfill-roles [--dry-run]
  link-telegram <student_id> <chat_id>
  run-sweep <deadline|unassigned|all>`

func main() {
	log := logger.New("grievance-admin")
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	db, err := storage.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect database")
	}
	// No redis needed unless a sweep publishes notifications
	s := storage.NewStorageService(db, nil, cfg.StoreTimeout)
	ctx := context.Background()

	args := os.Args[2:]
	switch os.Args[1] {
	case "create-admin":
		if len(args) < 5 {
			exitUsage()
		}
		in := auth.ProvisionInput{
			StudentID: args[0], Email: args[1], Password: args[2], Name: args[3],
			Role: models.RoleAdmin, AdminRole: models.AdminRole(args[4]),
		}
		if len(args) > 5 {
			in.Hostel = args[5]
		}
		u, err := auth.NewService(s, auth.NewTokens(cfg.JWTSecret), log).Provision(ctx, in)
		if err != nil {
			log.WithError(err).Fatal("Error creating admin")
		}
		fmt.Printf("Admin %s (%s) created with id %s.\n", u.Name, u.AdminRole, u.ID)
	case "create-worker":
		if len(args) != 4 {
			exitUsage()
		}
		u, err := auth.NewService(s, auth.NewTokens(cfg.JWTSecret), log).Provision(ctx, auth.ProvisionInput{
			StudentID: args[0], Email: args[1], Password: args[2], Name: args[3],
			Role: models.RoleWorker,
		})
		if err != nil {
			log.WithError(err).Fatal("Error creating worker")
		}
		fmt.Printf("Worker %s created with id %s.\n", u.Name, u.ID)
	case "backfill-roles":
		dryRun := len(args) > 0 && args[0] == "--dry-run"
		res, err := backfillRoles(ctx, s, dryRun)
		if err != nil {
			log.WithError(err).Fatal("Error backfilling admin roles")
		}
		for _, a := range res.Ambiguous {
			fmt.Printf("skipped %s: %v\n", a.UserID, a.Err)
		}
		fmt.Printf("%d admins updated, %d unmatched, %d ambiguous.\n", res.Updated, res.Unmatched, len(res.Ambiguous))
	case "link-telegram":
		if len(args) != 2 {
			exitUsage()
		}
		chatID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			fmt.Println("Invalid chat id. Please provide an integer.")
			os.Exit(1)
		}
		if err := linkTelegram(ctx, s, args[0], chatID); err != nil {
			log.WithError(err).Fatal("Error linking telegram chat")
		}
		fmt.Printf("User %s will now receive notifications in chat %d.\n", args[0], chatID)
	case "run-sweep":
		if len(args) != 1 {
			exitUsage()
		}
		rdb, err := storage.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, notifications will be stored but not pushed")
		} else {
			defer rdb.Close()
			s.Redis = rdb
		}
		n, err := runSweep(ctx, s, log, cfg.UnassignedGrace, args[0], time.Now())
		if err != nil {
			log.WithError(err).Error("sweep finished with errors")
		}
		fmt.Printf("%d complaints escalated.\n", n)
	default:
		fmt.Println("Unknown command")
		exitUsage()
	}
}

func exitUsage() {
	fmt.Println(usage)
	os.Exit(1)
}

type ambiguous struct {
	UserID string
	Err    error
}

type backfillResult struct {
	Updated   int
	Unmatched int
	Ambiguous []ambiguous
}

// backfillRoles derives admin_role from legacy display names for admins that
// have none yet. Ambiguous names are reported and left untouched.
func backfillRoles(ctx context.Context, s storage.Storage, dryRun bool) (*backfillResult, error) {
	admins, err := s.ListUsersByRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	res := &backfillResult{}
	for _, u := range admins {
		if u.AdminRole.Valid() {
			continue
		}
		role, err := roles.LegacyFromName(u.Name)
		var amb *roles.AmbiguousNameError
		if errors.As(err, &amb) {
			res.Ambiguous = append(res.Ambiguous, ambiguous{UserID: u.ID, Err: err})
			continue
		}
		if role == models.AdminRoleNone {
			res.Unmatched++
			continue
		}
		if !dryRun {
			if err := s.UpdateUser(ctx, u.ID, map[string]interface{}{"admin_role": role}); err != nil {
				return res, fmt.Errorf("update %s: %w", u.ID, err)
			}
		}
		res.Updated++
	}
	return res, nil
}

func linkTelegram(ctx context.Context, s storage.Storage, studentID string, chatID int64) error {
	u, err := s.GetUserByStudentID(ctx, studentID)
	if err != nil {
		return storage.Classify(err, "user")
	}
	return s.UpdateUser(ctx, u.ID, map[string]interface{}{"telegram_chat_id": chatID})
}

func runSweep(ctx context.Context, s storage.Storage, log logrus.FieldLogger, grace time.Duration, which string, now time.Time) (int, error) {
	sink := notify.NewSink(s, log, nil)
	defer sink.Wait()
	sched := escalation.NewScheduler(s, history.NewLogger(s, log, nil), sink, nil, log, grace)

	switch which {
	case escalation.SweepDeadline:
		return sched.DeadlineSweep(ctx, now)
	case escalation.SweepUnassigned:
		return sched.UnassignedSweep(ctx, now)
	case "all":
		deadline, unassigned, err := sched.RunAll(ctx, now)
		log.WithFields(logrus.Fields{"deadline": deadline, "unassigned": unassigned}).Info("sweeps complete")
		return deadline + unassigned, err
	}
	return 0, fmt.Errorf("unknown sweep %q", which)
}
