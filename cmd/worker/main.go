package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"rollcall/internal/audit"
	"rollcall/internal/config"
	"rollcall/internal/logger"
	"rollcall/internal/queue"
	"rollcall/internal/store"
)

// Worker drains the audit queue into the audit_log table. Persistence is
// best-effort: a failed insert is logged and the entry dropped, matching the
// no-retry delivery contract.
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logger init failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.AuditQueueKey)
	}

	repo := audit.NewRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatal("queue consume init failed", zap.Error(err))
	}

	log.Info("audit worker started")
	for msg := range messages {
		if msg.Type != audit.MessageType {
			continue
		}

		var entry audit.Entry
		if err := json.Unmarshal(msg.Body, &entry); err != nil {
			log.Warn("bad audit message", zap.Error(err))
			continue
		}
		if err := repo.Insert(ctx, entry); err != nil {
			log.Warn("audit insert failed", zap.String("action", entry.Action), zap.Error(err))
			continue
		}
		log.Debug("audit entry persisted", zap.String("action", entry.Action), zap.String("id", entry.ID))
	}

	log.Info("audit worker stopped")
}
