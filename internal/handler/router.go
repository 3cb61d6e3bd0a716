package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cynco/irportal/internal/middleware"
)

// Pinger はストレージの疎通確認を行う。
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	PrincipalLoader   middleware.PrincipalLoader
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	HTTPRecorder      middleware.HTTPRecorder
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ポータル
	PortalService PortalServiceInterface
	FeedConfig    FeedConfig

	// 運用
	Store          Pinger
	MetricsHandler http.Handler // nilの場合 /metrics は公開しない
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Metrics → Recovery → SecurityHeaders → CORS
//	  → Session → RateLimit(General)
//
// X-Forwarded-For等の転送ヘッダーは信頼せず、レート制限は接続元アドレスで行う。
// 書き込み系は RequireAdmin、回答・閲覧記録・フィードは RequireAuthenticated で保護する。
// /health と /metrics はセッションとレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	}
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	portalHandler := NewPortalHandler(deps.PortalService)
	feedHandler := NewFeedHandler(deps.PortalService, deps.FeedConfig)

	// --- 運用エンドポイント ---
	r.Get("/health", healthHandler(deps.Store))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.PrincipalLoader))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 認証
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.With(middleware.RequireAuthenticated).Get("/auth/user", authHandler.User)

		// KPI
		r.Get("/metrics", portalHandler.GetMetrics)
		r.With(middleware.RequireAdmin).Put("/metrics", portalHandler.UpdateMetrics)

		// 会社アップデート
		r.Route("/updates", func(r chi.Router) {
			r.Get("/", portalHandler.ListUpdates)
			r.With(middleware.RequireAuthenticated).Get("/feed", feedHandler.Feed)
			r.With(middleware.RequireAdmin).Post("/", portalHandler.CreateUpdate)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Put("/{id}", portalHandler.UpdateUpdate)
				r.Delete("/{id}", portalHandler.DeleteUpdate)
			})
		})

		// キャップテーブル
		r.Route("/stakeholders", func(r chi.Router) {
			r.Get("/", portalHandler.ListStakeholders)
			r.With(middleware.RequireAdmin).Post("/", portalHandler.CreateStakeholder)
			r.With(middleware.RequireAdmin).Put("/{id}", portalHandler.UpdateStakeholder)
		})

		// 資金調達タイムライン
		r.Route("/milestones", func(r chi.Router) {
			r.Get("/", portalHandler.ListMilestones)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/", portalHandler.CreateMilestone)
				r.Put("/{id}", portalHandler.UpdateMilestone)
				r.Delete("/{id}", portalHandler.DeleteMilestone)
			})
		})

		// データルーム
		r.Route("/documents", func(r chi.Router) {
			r.Get("/", portalHandler.ListDocuments)
			r.With(middleware.RequireAdmin).Post("/", portalHandler.CreateDocument)
			r.With(middleware.RequireAdmin).Delete("/{id}", portalHandler.DeleteDocument)
		})

		// Ask
		r.Route("/asks", func(r chi.Router) {
			r.Get("/", portalHandler.ListAsks)
			r.With(middleware.RequireAdmin).Post("/", portalHandler.CreateAsk)

			r.Route("/{id}", func(r chi.Router) {
				r.With(middleware.RequireAdmin).Put("/", portalHandler.UpdateAsk)
				r.With(middleware.RequireAdmin).Delete("/", portalHandler.DeleteAsk)
				r.Get("/responses", portalHandler.ListResponses)
				r.With(middleware.RequireAuthenticated).Post("/responses", portalHandler.CreateResponse)
				r.With(middleware.RequireAuthenticated).Post("/view", portalHandler.RecordAskView)
			})
		})
	})

	return r
}

// healthHandler はストレージへの疎通を確認し、結果を返す。
func healthHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
