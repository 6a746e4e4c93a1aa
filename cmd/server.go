package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Vovarama1992/trivia-mel-bridge/internal/audit"
	"github.com/Vovarama1992/trivia-mel-bridge/internal/config"
	"github.com/Vovarama1992/trivia-mel-bridge/internal/dedup"
	"github.com/Vovarama1992/trivia-mel-bridge/internal/session"
	"github.com/Vovarama1992/trivia-mel-bridge/internal/whatsapp"
)

const pingTimeout = 5 * time.Second

// openState uses redis when REDIS_URL is set and reachable. Any redis
// problem falls back to in-process state with a warning.
func openState(ctx context.Context, cfg config.Config) (dedup.Ledger, session.Store, func()) {
	memory := func() (dedup.Ledger, session.Store, func()) {
		return dedup.NewMemoryLedger(dedup.WithTTL(cfg.DedupTTL)),
			session.NewMemoryStore(session.WithTTL(cfg.SessionTTL)),
			func() {}
	}
	if cfg.RedisURL == "" {
		log.Info().Msg("state in memory")
		return memory()
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("bad REDIS_URL, state in memory")
		return memory()
	}
	rdb := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		log.Warn().Err(err).Msg("redis unreachable, state in memory")
		return memory()
	}

	log.Info().Msg("state in redis")
	return dedup.NewRedisLedger(rdb, cfg.DedupTTL),
		session.NewRedisStore(rdb, session.WithTTL(cfg.SessionTTL)),
		func() { _ = rdb.Close() }
}

// openAudit connects the optional audit database. Without one, or when it
// cannot be reached, turns are not recorded.
func openAudit(ctx context.Context, cfg config.Config) (audit.Repo, func()) {
	if cfg.DatabaseURL == "" {
		return audit.NopRepo{}, func() {}
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Warn().Err(err).Msg("bad DATABASE_URL, audit disabled")
		return audit.NopRepo{}, func() {}
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	err = db.PingContext(pingCtx)
	if err == nil {
		err = audit.EnsureSchema(pingCtx, db)
	}
	if err != nil {
		_ = db.Close()
		log.Warn().Err(err).Msg("audit db unavailable, audit disabled")
		return audit.NopRepo{}, func() {}
	}

	log.Info().Msg("audit in postgres")
	return audit.NewPostgresRepo(db), func() { _ = db.Close() }
}

type sessionCounter interface {
	SessionCount(ctx context.Context) (int, error)
}

func newRouter(cfg config.Config, webhook *whatsapp.Handler, sessions sessionCounter, model string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Hub-Signature-256"},
	}))

	whatsapp.RegisterRoutes(r, webhook)

	healthText := cfg.BrandName + " (" + cfg.PersonaName + ") online ✅"
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(healthText))
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		n, err := sessions.SessionCount(r.Context())
		status := "ok"
		if err != nil {
			status = "degraded"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":   status,
			"sessions": n,
			"model":    model,
		})
	})
	return r
}
