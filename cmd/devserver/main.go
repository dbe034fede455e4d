package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/deskline/ticket-sync/internal/api/http"
	"github.com/deskline/ticket-sync/internal/config"
	"github.com/deskline/ticket-sync/internal/observability"
	"github.com/deskline/ticket-sync/internal/persistence"
	"github.com/deskline/ticket-sync/internal/repository"
	"github.com/deskline/ticket-sync/internal/service"
)

type repositories struct {
	tickets  repository.TicketRepository
	comments repository.CommentRepository
	users    repository.UserRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	repos := newRepositories(pg)

	var stats service.StatsCache
	if redis.Enabled() {
		stats = service.NewRedisStatsCache(redis.Client, cfg.Redis.StatsTTL)
	}

	authService := service.NewAuthService(cfg.Auth, repos.users, logger)
	if err := authService.SeedUsers(ctx, cfg.Auth.DevUsers); err != nil {
		logger.Fatal("failed to seed users", zap.Error(err))
	}

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  repos.tickets,
		CommentRepo: repos.comments,
		UserRepo:    repos.users,
		Stats:       stats,
		Logger:      logger,
	})

	app := httptransport.NewServer(httptransport.ServerDependencies{
		Name:     cfg.App.Name,
		Version:  cfg.App.Version,
		Timeout:  cfg.App.RequestTimeout(),
		Logger:   logger,
		Metrics:  observability.NewMetrics(),
		Postgres: pg,
		Redis:    redis,
		Users:    repos.users,
		Auth:     authService,
		Tickets:  ticketService,
	})

	go func() {
		logger.Info("ticket service listening",
			zap.String("addr", cfg.App.Addr()),
			zap.String("api_prefix", httptransport.APIPrefix),
			zap.Bool("postgres", pg.Enabled()),
			zap.Bool("redis", redis.Enabled()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func newRepositories(pg *persistence.Postgres) repositories {
	if !pg.Enabled() {
		mem := repository.NewMemoryStore()
		return repositories{tickets: mem.Tickets(), comments: mem.Comments(), users: mem.Users()}
	}
	pool := pg.PoolHandle()
	return repositories{
		tickets:  repository.NewTicketRepository(pool),
		comments: repository.NewCommentRepository(pool),
		users:    repository.NewUserRepository(pool),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
