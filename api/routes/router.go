package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fieldops-io/assettrack-backend/api/controllers"
	"github.com/fieldops-io/assettrack-backend/api/middleware"
	"github.com/fieldops-io/assettrack-backend/internal/archive"
	"github.com/fieldops-io/assettrack-backend/internal/assets"
	"github.com/fieldops-io/assettrack-backend/internal/audits"
	authsvc "github.com/fieldops-io/assettrack-backend/internal/auth"
	"github.com/fieldops-io/assettrack-backend/internal/history"
	"github.com/fieldops-io/assettrack-backend/internal/jobs"
	"github.com/fieldops-io/assettrack-backend/pkg/auth/session"
	"github.com/fieldops-io/assettrack-backend/pkg/config"
	"github.com/fieldops-io/assettrack-backend/pkg/enums"
	"github.com/fieldops-io/assettrack-backend/pkg/logger"
	"github.com/fieldops-io/assettrack-backend/pkg/redis"
)

// RouterParams collects everything the HTTP surface depends on.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	DBPinger       pinger
	RedisClient    *redis.Client
	SessionChecker session.AccessSessionChecker
	AuthService    authsvc.Service
	Register       authsvc.RegisterService
	Assets         assets.Service
	History        history.Service
	Jobs           jobs.Service
	Audits         audits.Service
	Archive        archive.Service
}

type pinger interface {
	Ping(ctx context.Context) error
}

type counterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	// Avoid typed-nil interfaces when no redis client is wired.
	var (
		cache   pinger
		idem    redis.IdempotencyStore
		limiter counterStore
	)
	if params.RedisClient != nil {
		cache = params.RedisClient
		idem = params.RedisClient
		limiter = params.RedisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DBPinger, cache))
	})
	r.Get("/healthz", controllers.HealthLive(cfg))

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Post("/validate", controllers.PublicValidate(logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, limiter, logg)).Post("/login", controllers.AuthLogin(params.AuthService, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, limiter, logg),
			middleware.Idempotency(idem, logg),
		).Post("/register", controllers.AuthRegister(params.Register, params.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(params.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(params.AuthService, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, params.SessionChecker, logg))
		r.Use(middleware.Idempotency(idem, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/assets", func(r chi.Router) {
			r.Get("/", controllers.AssetList(params.Assets, logg))
			r.Post("/", controllers.AssetCreate(params.Assets, logg))
			r.Get("/{assetId}", controllers.AssetDetail(params.Assets, logg))
			r.Patch("/{assetId}", controllers.AssetUpdate(params.Assets, logg))
			r.Get("/{assetId}/history", controllers.AssetHistory(params.History, logg))
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", controllers.JobList(params.Jobs, logg))
			r.Post("/", controllers.JobCreate(params.Jobs, logg))
			r.Get("/queue", controllers.JobQueue(params.Jobs, logg))
			r.Get("/overdue", controllers.JobOverdue(params.Jobs, logg))
			r.Get("/search", controllers.JobSearch(params.Jobs, logg))
			r.Get("/{jobId}", controllers.JobDetail(params.Jobs, logg))
			r.Patch("/{jobId}", controllers.JobUpdate(params.Jobs, logg))
			r.Post("/{jobId}/start", controllers.JobStart(params.Jobs, logg))
			r.Post("/{jobId}/complete", controllers.JobComplete(params.Jobs, logg))
			r.Post("/{jobId}/fail", controllers.JobFail(params.Jobs, logg))
			r.Post("/{jobId}/cancel", controllers.JobCancel(params.Jobs, logg))
			r.With(middleware.RequireRole(string(enums.UserRoleAdmin), logg)).
				Delete("/{jobId}", controllers.JobDelete(params.Jobs, logg))
		})

		r.Route("/audits", func(r chi.Router) {
			r.Get("/", controllers.AuditList(params.Audits, logg))
			r.Post("/scan", controllers.AuditScan(params.Audits, logg))
			r.Post("/status", controllers.AuditStatusUpdate(params.Audits, logg))
			r.Get("/statistics", controllers.AuditStatistics(params.Audits, logg))
			r.Get("/assets", controllers.AuditAssets(params.Audits, logg))
			r.Get("/sessions/{sessionId}", controllers.AuditSession(params.Audits, logg))
			r.Get("/deleted", controllers.AuditDeletedHistory(params.Archive, logg))
			r.Patch("/{auditId}", controllers.AuditRecordUpdate(params.Archive, logg))
			r.Delete("/{auditId}", controllers.AuditRecordDelete(params.Archive, logg))
			r.With(middleware.RequireRole(string(enums.UserRoleAdmin), logg)).
				Delete("/", controllers.AuditClearAll(params.Archive, logg))
		})
	})

	return r
}
