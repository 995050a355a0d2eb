package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rollcall/internal/attendance"
	"rollcall/internal/audit"
	"rollcall/internal/config"
	"rollcall/internal/course"
	"rollcall/internal/enrollment"
	"rollcall/internal/handler"
	"rollcall/internal/live"
	"rollcall/internal/logger"
	"rollcall/internal/qrsign"
	"rollcall/internal/queue"
	"rollcall/internal/reports"
	"rollcall/internal/store"
	"rollcall/internal/users"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logger init failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg config.App, log *zap.Logger) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.Migrate(db.Client, log); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.AuditQueueKey)
	}

	signer := qrsign.New(cfg.QRSecret)
	enrollRepo := enrollment.NewRepository(db.Client)
	resolver := enrollment.NewResolver(enrollRepo, log)
	attRepo := attendance.NewRepository(db.Client)
	att := attendance.NewService(attRepo, resolver, signer, cfg.RedeemWindow, log)

	hub := live.NewHub()
	go hub.Run()

	h := handler.New(
		cfg, log, db, redisClient,
		users.NewRepository(db.Client),
		course.NewRepository(db.Client),
		att, attRepo, enrollRepo,
		reports.NewRepository(db.Client, log),
		audit.NewRepository(db.Client),
		audit.NewRecorder(q, log),
		hub,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("forced shutdown", zap.Error(err))
	}

	log.Info("server exited")
	return nil
}
