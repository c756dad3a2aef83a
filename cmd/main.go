package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hostelgrievance/backend/internal/api/handler"
	"hostelgrievance/backend/internal/auth"
	"hostelgrievance/backend/internal/complaint"
	"hostelgrievance/backend/internal/config"
	"hostelgrievance/backend/internal/escalation"
	"hostelgrievance/backend/internal/history"
	"hostelgrievance/backend/internal/localization"
	"hostelgrievance/backend/internal/logger"
	"hostelgrievance/backend/internal/metrics"
	"hostelgrievance/backend/internal/notify"
	"hostelgrievance/backend/internal/notifyhub"
	"hostelgrievance/backend/internal/photo"
	"hostelgrievance/backend/internal/rating"
	"hostelgrievance/backend/internal/storage"
	"hostelgrievance/backend/internal/telegram"
	"hostelgrievance/backend/internal/upvote"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logger.New("grievance-api")
	log.Info("Starting hostel grievance backend...")

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file, using the process environment")
	}
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Dependencies
	db, err := storage.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect PostgreSQL")
	}
	rdb, err := storage.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.WithError(err).Fatal("failed to connect Redis")
	}
	defer rdb.Close()

	s := storage.NewStorageService(db, rdb, cfg.StoreTimeout)
	if err := s.Migrate(ctx); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}
	log.Info("Database and Redis connections established, migrations complete.")

	m := metrics.New("grievance")

	// 2. Notification fan-out
	var channels []notify.Channel
	if cfg.TelegramBotToken != "" {
		tg, botName, err := telegram.NewClient(cfg.TelegramBotToken)
		if err != nil {
			log.WithError(err).Error("telegram bot unavailable, continuing without it")
		} else {
			log.WithField("bot", botName).Info("telegram notifications enabled")
			channels = append(channels, tg)
		}
	}
	sink := notify.NewSink(s, log, m, channels...)
	recorder := history.NewLogger(s, log, m)

	var photos complaint.PhotoStore
	if cfg.S3Bucket != "" {
		blobs, err := photo.NewS3Store(ctx, photo.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			log.WithError(err).Fatal("failed to configure photo storage")
		}
		photos = photo.NewUploader(blobs, log, m)
	}

	// 3. Services
	tokens := auth.NewTokens(cfg.JWTSecret)
	complaints := complaint.NewService(s, complaint.Deps{
		History:         recorder,
		Notifier:        sink,
		Photos:          photos,
		Messages:        localization.Default(),
		Metrics:         m,
		Log:             log,
		DefaultDeadline: cfg.DefaultDeadline,
	})
	scheduler := escalation.NewScheduler(s, recorder, sink, m, log, cfg.UnassignedGrace)

	hub := notifyhub.NewHub(log)
	go hub.Run(ctx)
	hub.StartPubSubListener(ctx, s)

	h := handler.NewHandler(handler.Handler{
		Auth:       auth.NewService(s, tokens, log),
		Tokens:     tokens,
		Users:      s,
		Complaints: complaints,
		Upvotes:    upvote.NewService(s, log),
		Ratings:    rating.NewService(s, m, log),
		Escalation: scheduler,
		Inbox:      notify.NewInbox(s),
		Hub:        hub,
		Log:        log,
	})

	// 4. Routing
	gin.SetMode(gin.ReleaseMode)
	limiter := handler.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go sweepVisitors(ctx, limiter)

	r := handler.NewRouter(h, limiter, cfg.CORSOrigins, m.GinMiddleware())
	r.GET("/metrics", gin.WrapH(m.Handler()))

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   15 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	shutdown(log, server, sink)
}

func shutdown(log logrus.FieldLogger, server *http.Server, sink *notify.Sink) {
	log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("HTTP server shutdown")
	}
	sink.Wait()
	log.Info("Stopped")
}

func sweepVisitors(ctx context.Context, limiter *handler.RateLimiter) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			limiter.Sweep(now)
		}
	}
}
