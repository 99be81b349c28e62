package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/jobboard/internal/middleware"
)

// HealthChecker は依存先の疎通を確認する。*sql.DB が満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Users             CurrentUserGetter
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRF              middleware.CSRFConfig
	Logger            *slog.Logger
	StatusRecorder    middleware.HTTPStatusRecorder

	// 認証
	AuthConfig AuthHandlerConfig

	// ミューテーション層と射影層
	Mutations MutationDispatcher
	Board     BoardReader

	// 運用エンドポイント。nilの場合は登録しない、またはチェックを省略する。
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → StatusMetrics → SecurityHeaders → CORS
//	  → Session → RateLimit(General) → CSRF → RateLimit(Mutation)
//
// 認証ルート（/auth/*）、/health、/metrics はセッションチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewStatusMetricsMiddleware(deps.StatusRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.Mutations, deps.Users, deps.AuthConfig)
	jobHandler := NewJobHandler(deps.Mutations, deps.Board)
	candidateHandler := NewCandidateHandler(deps.Mutations, deps.Board)
	userHandler := NewUserHandler(deps.Mutations, deps.Board)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF).ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.Users))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))
		r.Use(deps.RateLimiter.MutationMiddleware())

		r.Route("/api/users", func(r chi.Router) {
			r.Get("/", userHandler.List)
			r.Post("/", userHandler.Create)
		})

		r.Route("/api/jobs", func(r chi.Router) {
			r.Get("/", jobHandler.List)
			r.Post("/", jobHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", jobHandler.Get)
				r.Patch("/", jobHandler.Update)
				r.Delete("/", jobHandler.Delete)
				r.Post("/toggle", jobHandler.Toggle)
				r.Get("/candidates", jobHandler.Candidates)
			})
		})

		r.Route("/api/candidates", func(r chi.Router) {
			r.Get("/", candidateHandler.List)
			r.Post("/", candidateHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", candidateHandler.Get)
				r.Patch("/", candidateHandler.Update)
				r.Post("/notes", candidateHandler.AppendNote)
			})
		})

		r.Route("/api/me", func(r chi.Router) {
			r.Get("/jobs", jobHandler.MyJobs)
			r.Get("/referrals", candidateHandler.MyReferrals)
			r.Get("/applicants", jobHandler.WithApplicants)
		})

		r.Get("/api/admin/summary", userHandler.AdminSummary)
	})

	return r
}

// healthHandler はヘルスチェック用のハンドラーを返す。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
