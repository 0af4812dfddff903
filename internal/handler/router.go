package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/weddingrsvp/internal/metrics"
	"github.com/hitoshi/weddingrsvp/internal/middleware"
	"github.com/hitoshi/weddingrsvp/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Verifier          middleware.SessionVerifier
	AdminEmails       []string
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 監視
	HealthChecker  HealthChecker
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler

	// 出欠
	RSVPService RSVPServiceInterface

	// 管理者
	AdminService AdminServiceInterface
	Sanitizer    security.ListingSanitizerService
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS
//	  → Session → RateLimit(General) [→ RateLimit(Mutation) | Admin]
//
// /health と /metrics は認証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	mc := deps.Metrics
	if mc == nil {
		mc = metrics.Nop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(mc))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	rsvpHandler := NewRSVPHandler(deps.RSVPService, mc)
	adminHandler := NewAdminHandler(deps.AdminService, deps.Sanitizer, mc)

	// --- 認証不要のルート ---
	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.Verifier, mc))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		mutation := deps.RateLimiter.MutationMiddleware()

		r.Route("/api/self", func(r chi.Router) {
			r.Get("/", rsvpHandler.GetSelf)
			r.With(mutation).Post("/", rsvpHandler.UpdateSelf)
		})

		r.Route("/api/group", func(r chi.Router) {
			r.Get("/", rsvpHandler.GetGroup)
			r.With(mutation).Post("/", rsvpHandler.UpdateGroup)
		})

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.NewAdminMiddleware(deps.AdminEmails))

			r.Get("/people", adminHandler.ListPeople)
			r.Get("/sessions", adminHandler.ListSessions)
			r.Get("/new-people", adminHandler.ListNewPeople)
		})
	})

	return r
}
