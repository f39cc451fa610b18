package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/barpos/barpos/internal/app"
	"github.com/barpos/barpos/internal/auth"
	"github.com/barpos/barpos/internal/balance"
	"github.com/barpos/barpos/internal/catalog"
	"github.com/barpos/barpos/internal/debtor"
	"github.com/barpos/barpos/internal/notifier"
	"github.com/barpos/barpos/internal/observability"
	"github.com/barpos/barpos/internal/platform/cache"
	"github.com/barpos/barpos/internal/platform/db"
	"github.com/barpos/barpos/internal/rbac"
	"github.com/barpos/barpos/internal/shared"
	"github.com/barpos/barpos/internal/transactions"
	"github.com/barpos/barpos/internal/transfers"
	"github.com/barpos/barpos/internal/users"
	"github.com/barpos/barpos/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	rbacManager := rbac.NewManager()
	if err := rbac.RegisterDefaultRoles(rbacManager); err != nil {
		logger.Error("register roles", slog.Any("error", err))
		os.Exit(1)
	}
	rbacManager.Seal()
	rbacMiddleware := rbac.Middleware{Manager: rbacManager, Logger: logger}

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, rbacManager)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	balanceCache := balance.NewCache(redisClient, 10*time.Minute, logger)
	balanceRepo := balance.NewRepository(dbpool)
	balanceService := balance.NewService(balanceRepo, balanceCache)
	balanceHandler := balance.NewHandler(logger, balanceService)

	trigger := notifier.NewTrigger(jobsClient, logger, cfg.NotificationBuffer)

	debtorRepo := debtor.NewRepository(dbpool)
	debtorService := debtor.NewService(debtorRepo, balanceService, usersService, jobsClient, cfg.FineSchedule(), logger)
	debtorHandler := debtor.NewHandler(logger, debtorService, idempotencyStore)

	transfersRepo := transfers.NewRepository(dbpool)
	transfersService := transfers.NewService(transfersRepo, balanceService, usersService, trigger)
	transfersHandler := transfers.NewHandler(logger, transfersService)

	transactionsRepo := transactions.NewRepository(dbpool)
	transactionsService := transactions.NewService(transactionsRepo, balanceService, usersService, trigger)
	transactionsHandler := transactions.NewHandler(logger, transactionsService)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		SessionManager:      sessionManager,
		RBACMiddleware:      rbacMiddleware,
		AuthHandler:         authHandler,
		UsersHandler:        usersHandler,
		BalanceHandler:      balanceHandler,
		DebtorHandler:       debtorHandler,
		TransfersHandler:    transfersHandler,
		TransactionsHandler: transactionsHandler,
		CatalogHandler:      catalogHandler,
		JobHandler:          jobHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		if err := trigger.Run(groupCtx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		logger.Error("run", slog.Any("error", err))
		os.Exit(1)
	}
}
