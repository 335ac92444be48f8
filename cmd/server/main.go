package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aryan0dhankhar/teamhub/internal/domain"
	"github.com/aryan0dhankhar/teamhub/internal/featureflags"
	"github.com/aryan0dhankhar/teamhub/internal/handler"
	"github.com/aryan0dhankhar/teamhub/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/teamhub/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/teamhub/internal/observability/tracing"
	"github.com/aryan0dhankhar/teamhub/internal/realtime"
	"github.com/aryan0dhankhar/teamhub/internal/repository"
	"github.com/aryan0dhankhar/teamhub/internal/repository/memory"
	"github.com/aryan0dhankhar/teamhub/internal/router"
	"github.com/aryan0dhankhar/teamhub/internal/security"
	"github.com/aryan0dhankhar/teamhub/internal/security/audit"
	"github.com/aryan0dhankhar/teamhub/internal/security/auth"
	"github.com/aryan0dhankhar/teamhub/internal/security/ratelimit"
	"github.com/aryan0dhankhar/teamhub/internal/service"
	"github.com/aryan0dhankhar/teamhub/internal/worker"
	"github.com/aryan0dhankhar/teamhub/pkg/config"
	"github.com/aryan0dhankhar/teamhub/pkg/database"
)

// stores is the set of repositories the services run on
type stores struct {
	users    domain.UserRepository
	teams    domain.TeamRepository
	invites  domain.InviteRepository
	activity domain.ActivityRepository
	ping     handler.Pinger
	close    func() error
}

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting TeamHub server",
		slog.String("environment", cfg.Environment),
		slog.String("store", cfg.StoreDriver),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing
	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName: "teamhub",
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	}, log)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Repositories
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer st.close()

	// 5. Team cache: Redis when configured, in-process otherwise
	checks := map[string]handler.Pinger{cfg.StoreDriver: st.ping}
	var (
		teamCache repository.TeamCache
		purger    worker.Purger
	)
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		teamCache = repository.NewRedisTeamCache(redisClient, cfg.TeamCacheTTL, log)
		checks["redis"] = redisClient
	} else {
		memCache := repository.NewMemoryTeamCache(cfg.TeamCacheTTL)
		teamCache, purger = memCache, memCache
	}
	teams := repository.NewCachedTeamRepository(st.teams, teamCache)

	// 6. Security and services
	tokens := auth.NewTokenManager(cfg.JWTSecret, "teamhub", cfg.TokenTTL)
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, using an insecure development secret")
	}
	limiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	defer limiter.Stop()

	hub := realtime.NewHub(log)
	recorder := audit.NewRecorder(st.activity, hub, log)
	gate := security.NewTeamGate(teams, log)

	rootHandler := router.New(router.Deps{
		Auth:               service.NewAuthService(st.users, tokens, log),
		Teams:              service.NewTeamService(teams, st.users, gate, recorder, log),
		Invites:            service.NewInviteService(st.invites, teams, st.users, gate, recorder, featureflags.Enabled, log),
		Activity:           service.NewActivityService(st.activity, st.users, gate, log),
		Gate:               gate,
		Hub:                hub,
		Tokens:             tokens,
		Limiter:            limiter,
		Recorder:           recorder,
		Checks:             checks,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
		Logger:             log,
	})

	// 7. Background stats
	statsWorker := worker.NewStatsWorker(st.teams, st.invites, purger, log, cfg.StatsInterval)
	go statsWorker.Start(ctx)

	// 8. Start HTTP server. No write timeout: activity streams are long-lived.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           rootHandler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.Bool(featureflags.InviteRejectMembers, featureflags.Enabled(featureflags.InviteRejectMembers)),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.String("error", err.Error()))
			sigChan <- syscall.SIGTERM
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	cancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

// openStores connects the configured store driver
func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return &stores{
			users:    memory.NewUserRepository(),
			teams:    memory.NewTeamRepository(),
			invites:  memory.NewInviteRepository(),
			activity: memory.NewActivityRepository(),
			ping:     nil,
			close:    func() error { return nil },
		}, nil
	}

	pool, err := database.NewConnectionPool(ctx, &database.Config{
		URL:          cfg.Database.URL,
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Name,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}, log)
	if err != nil {
		return nil, err
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	db := pool.GetDB()
	return &stores{
		users:    repository.NewPostgresUserRepository(db, log),
		teams:    repository.NewPostgresTeamRepository(db, log),
		invites:  repository.NewPostgresInviteRepository(db, log),
		activity: repository.NewPostgresActivityRepository(db, log),
		ping:     handler.PingFunc(pool.Health),
		close:    pool.Close,
	}, nil
}
