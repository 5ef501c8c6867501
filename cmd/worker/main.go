// Package main runs the background email worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tixora/backend/config"
	"github.com/tixora/backend/internal/emaillogs"
	"github.com/tixora/backend/internal/events"
	"github.com/tixora/backend/internal/mailer"
	"github.com/tixora/backend/internal/registrations"
	"github.com/tixora/backend/internal/worker"
	"github.com/tixora/backend/pkg/database"
	applog "github.com/tixora/backend/pkg/logger"
	"github.com/tixora/backend/pkg/queue"
	"github.com/tixora/backend/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := applog.New(applog.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	defer logger.Sync()

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	sender := mailer.New(mailer.Config{
		APIKey:      cfg.Email.APIKey,
		APIURL:      cfg.Email.APIURL,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
	}, logger)
	if !sender.Enabled() {
		logger.Warn("RESEND_API_KEY not set; ticket emails will be logged as skipped")
	}

	processor := worker.NewEmailProcessor(
		queue.NewQueue(rdb.Client, logger),
		registrations.NewRepository(pool),
		events.NewRepository(pool),
		sender,
		emaillogs.NewRepository(pool),
		func(code string) string { return registrations.TicketURL(cfg.Server.AppURL, code) },
		logger,
	)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		processor.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn("worker did not stop in time")
	}
	logger.Info("worker stopped")
}
