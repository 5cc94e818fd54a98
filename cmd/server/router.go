package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cfghandler "zac/internal/configuration/handler"
	jwttoken "zac/internal/jwt_token"
	"zac/internal/platform/config"
	platformredis "zac/internal/platform/redis"
	"zac/internal/ratelimit/bucket"
	ratelimit "zac/internal/ratelimit/middleware"
	zaakhandler "zac/internal/zaak/handler"
	"zac/pkg/platform/httputil"
	"zac/pkg/platform/middleware/admin"
	authmw "zac/pkg/platform/middleware/auth"
	"zac/pkg/platform/middleware/metadata"
	"zac/pkg/platform/middleware/observability"
	"zac/pkg/platform/middleware/requesttime"
)

const (
	requestTimeout     = 30 * time.Second
	headerCatalogToken = "X-Catalog-Token"
)

type routes struct {
	cases          *zaakhandler.Handler
	configurations *cfghandler.Handler
	db             *sql.DB
	redis          *platformredis.Client
}

func newRouter(cfg *config.Config, rt routes, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(observability.Recovery(logger))
	r.Use(middleware.RealIP)
	r.Use(metadata.RequestMetadata)
	r.Use(requesttime.Middleware)
	r.Use(observability.Logger(logger))
	r.Use(observability.Latency(observability.NewMetrics(prometheus.DefaultRegisterer)))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", healthz(rt.db, rt.redis))
	r.Handle("/metrics", promhttp.Handler())

	limits := ratelimit.New(rateLimiter(rt.redis), logger, ratelimit.WithDisabled(cfg.RateLimit.Disabled))

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireToken(headerCatalogToken, cfg.Auth.WebhookToken, logger))
		r.Use(limits.PerActor("webhook", cfg.RateLimit.Webhook, cfg.RateLimit.Window))
		rt.configurations.RegisterNotifications(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(cfg.Auth.AdminToken, logger))
		rt.configurations.Register(r)
	})

	r.Group(func(r chi.Router) {
		if cfg.Auth.JWTSigningKey != "" {
			jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
			r.Use(authmw.RequireAuth(jwttoken.NewJWTServiceAdapter(jwtService), logger))
		} else {
			logger.Warn("AUTH_JWT_SIGNING_KEY is not set, trusting actor headers")
		}
		r.Use(limits.PerActor("mutation", cfg.RateLimit.Mutations, cfg.RateLimit.Window))
		rt.cases.Register(r)
	})

	return r
}

// rateLimiter shares counters between replicas through Redis when it is configured.
func rateLimiter(rdb *platformredis.Client) ratelimit.Limiter {
	if rdb == nil {
		return bucket.NewInMemory()
	}
	return bucket.NewRedis(rdb.Client)
}

func healthz(db *sql.DB, rdb *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				status["database"], status["status"], code = err.Error(), "degraded", http.StatusServiceUnavailable
			}
		}
		if rdb != nil {
			if err := rdb.Health(ctx); err != nil {
				status["redis"], status["status"], code = err.Error(), "degraded", http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, code, status)
	}
}
