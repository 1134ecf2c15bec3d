package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/ministry-digital/portal-api/internal/api"
	"github.com/ministry-digital/portal-api/internal/api/metrics"
	"github.com/ministry-digital/portal-api/internal/core/domain"
	"github.com/ministry-digital/portal-api/internal/core/ports"
	"github.com/ministry-digital/portal-api/internal/infrastructure/config"
	mongodb "github.com/ministry-digital/portal-api/internal/infrastructure/db/mongo"
	redisdb "github.com/ministry-digital/portal-api/internal/infrastructure/db/redis"
	"github.com/ministry-digital/portal-api/internal/infrastructure/queue"
	"github.com/ministry-digital/portal-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet.
		panic(err)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: !cfg.Production(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	userRepo := mongodb.NewUserRepository(db)
	auditRepo := mongodb.NewAuditRepository(db)
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("user index creation failed")
	}
	if err := auditRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("audit index creation failed")
	}

	if err := bootstrapAdmin(ctx, cfg, userRepo, log); err != nil {
		log.Fatal().Err(err).Msg("admin bootstrap failed")
	}

	// --- Shared state ---
	sessions := redisdb.NewSessionRegistry(rdb, cfg.SessionIdleTimeout, cfg.SessionMaxLifetime)
	limiter := redisdb.NewRateLimiter(rdb)

	dispatcher := queue.NewDispatcher(0, auditRepo, log)
	dispatcher.Start(ctx)

	go purgeLoop(ctx, sessions, cfg.SessionPurgeEvery, log)

	// --- HTTP ---
	e := api.NewRouter(cfg, log, api.Dependencies{
		Users:       userRepo,
		Sessions:    sessions,
		Limiter:     limiter,
		Audit:       dispatcher,
		MongoDB:     db,
		RedisClient: rdb,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server start failed")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("portal api started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

// bootstrapAdmin seeds the initial administrator with a first-login flag
// when the configured admin account does not exist yet.
func bootstrapAdmin(ctx context.Context, cfg *config.Config, repo ports.UserRepository, log zerolog.Logger) error {
	if cfg.Bootstrap.AdminPassword == "" {
		log.Debug().Msg("no bootstrap admin password configured, skipping")
		return nil
	}

	if _, err := repo.FindByUsername(ctx, cfg.Bootstrap.AdminUsername); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Bootstrap.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = repo.Create(ctx, &domain.User{
		Username:     cfg.Bootstrap.AdminUsername,
		Email:        cfg.Bootstrap.AdminEmail,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		Status:       domain.StatusActive,
		IsFirstLogin: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return err
	}

	log.Info().Str("username", cfg.Bootstrap.AdminUsername).Msg("bootstrap admin created")
	return nil
}

// purgeLoop evicts expired sessions periodically and keeps the active
// session gauge current.
func purgeLoop(ctx context.Context, sessions ports.SessionRegistry, every time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.PurgeExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("session purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int("purged", n).Msg("expired sessions purged")
			}
			if stats, err := sessions.Stats(ctx); err == nil {
				metrics.ActiveSessions.Set(float64(stats.ActiveSessions))
			}
		}
	}
}
