package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/barpos/barpos/internal/app"
	"github.com/barpos/barpos/internal/debtor"
	"github.com/barpos/barpos/internal/platform/cache"
	"github.com/barpos/barpos/internal/platform/db"
	"github.com/barpos/barpos/internal/users"
	"github.com/barpos/barpos/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	usersService := users.NewService(users.NewRepository(pool))
	debtBook := debtor.NewDebtBook(debtor.NewRepository(pool), cfg.FineDebtThresholdCents)

	mailer := &jobs.Mailer{
		Addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		From: cfg.SMTPFrom,
	}
	processor := jobs.NewTaskProcessor(mailer, usersService, debtBook)

	var cron []jobs.CronRegistration
	if cfg.DebtSweepCron != "" {
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.DebtSweepCron,
			Task:    jobs.NewDebtSweepTask(),
			Options: []asynq.Option{asynq.Queue(jobs.QueueMail)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Processor: processor,
		Cron:      cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
