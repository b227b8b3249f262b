package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collabtodo/internal/handler"
	"collabtodo/internal/httpserver"
	"collabtodo/internal/repository"
	"collabtodo/internal/service"
	"collabtodo/internal/session"
	"collabtodo/pkg/config"
	"collabtodo/pkg/db"
	"collabtodo/pkg/logger"
	"collabtodo/pkg/mq"
	"collabtodo/pkg/outbox"
	"collabtodo/pkg/redis"
)

// setup loads config and builds the logger shared by every subcommand.
func setup(flags globalFlags) (*config.Config, *zap.Logger, error) {
	log, err := logger.NewLoggerWithLevel(flags.logLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}

	env := flags.env
	if env == "" {
		env = config.GetConfigEnv()
	}
	cfg, err := config.LoadConfig(env, flags.configDir)
	if err != nil {
		return nil, log, err
	}
	return cfg, log, nil
}

func serve(ctx context.Context, flags globalFlags) error {
	cfg, log, err := setup(flags)
	if err != nil {
		return err
	}
	defer log.Sync()
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var notConfigured *config.NotConfiguredError
	if err := cfg.Validate(); errors.As(err, &notConfigured) {
		log.Error("Service is not configured, serving 503", zap.Strings("missing", notConfigured.Missing))
		return run(ctx, httpserver.NewServer(cfg.Server.Port, httpserver.NewUnconfiguredRouter(err, log), log), cfg, log)
	}

	log.Info("Starting collabtodo...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("redis_addr", cfg.Redis.Addr),
	)

	// DB
	pool, err := db.NewConnection(ctx, cfg.DB, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Redis for session revocation
	var sessions session.Store = session.NoopStore{}
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, log)
	} else {
		log.Warn("Redis not configured, sign-out will not revoke tokens")
	}

	// Outbox dispatcher
	if cfg.MQ.URL != "" {
		publisher, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			return err
		}
		defer publisher.Close()

		dispatcher := outbox.NewDispatcher(outbox.NewRepository(pool), publisher, log).
			WithInterval(cfg.Outbox.Interval).
			WithBatchSize(cfg.Outbox.BatchSize).
			WithMaxRetries(cfg.Outbox.MaxRetries)
		go dispatcher.Start(ctx)
	} else {
		log.Warn("MQ not configured, domain events stay in the outbox")
	}

	accountRepo := repository.NewAccountRepository(pool, log)
	profileRepo := repository.NewProfileRepository(pool, log)
	projectRepo := repository.NewProjectRepository(pool, log)
	taskRepo := repository.NewTaskRepository(pool, log)
	memberRepo := repository.NewMemberRepository(pool, log)

	profileService := service.NewProfileService(profileRepo, accountRepo, log)
	authService := service.NewAuthService(accountRepo, profileService, sessions, cfg.JWT, log)
	projectService := service.NewProjectService(projectRepo, memberRepo, log)
	taskService := service.NewTaskService(taskRepo, projectRepo, memberRepo, log)
	memberService := service.NewMemberService(memberRepo, projectRepo, profileRepo, log)

	router := httpserver.NewRouter(httpserver.Handlers{
		Auth:     handler.NewAuthHandler(authService, log),
		Profiles: handler.NewProfileHandler(profileService, log),
		Projects: handler.NewProjectHandler(projectService, log),
		Tasks:    handler.NewTaskHandler(taskService, log),
		Members:  handler.NewMemberHandler(memberService, log),
	}, authService, pool, log)

	return run(ctx, httpserver.NewServer(cfg.Server.Port, router, log), cfg, log)
}

// run blocks until ctx is cancelled or the listener fails, then shuts down.
func run(ctx context.Context, srv *httpserver.Server, cfg *config.Config, log *zap.Logger) error {
	errCh := srv.Start()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	// 优雅退出处理
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}
	log.Info("collabtodo shutdown complete")
	return nil
}
