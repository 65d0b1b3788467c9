package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/seotrack/internal/middleware"
	"github.com/hitoshi/seotrack/internal/telemetry"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger
	Telemetry         telemetry.TelemetryCollector
	Gatherer          prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ドメインサービス
	SiteService     SiteServiceInterface
	TrackingService TrackingServiceInterface
	MetricService   MetricServiceInterface

	// ヘルスチェック
	HealthChecker HealthChecker
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Logging
//	（認証ルートグループのみ追加で）Session → CSRF → RateLimit(General)
//
// /metrics リソース、/auth/*、/health、/internal/metrics は認証ゲートの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())

	var recordStatus middleware.StatusRecorderFunc
	if deps.Telemetry != nil {
		recordStatus = deps.Telemetry.RecordHTTPStatus
	}
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, recordStatus))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	siteHandler := NewSiteHandler(deps.SiteService)
	trackingHandler := NewTrackingHandler(deps.TrackingService)
	metricHandler := NewMetricHandler(deps.MetricService)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler.Check)

	// Prometheusエクスポジション。/metricsはドメインリソースが使用するため別パスに置く。
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/internal/metrics", telemetry.Handler(deps.Gatherer))
	}

	// セッション管理
	r.Route("/auth", func(r chi.Router) {
		r.Get("/me", authHandler.Me)
		r.Post("/logout", authHandler.Logout)
		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))
	})

	// メトリクスリソース（認証ゲートなし）
	r.Route("/metrics", func(r chi.Router) {
		r.Get("/", metricHandler.ListMetrics)
		r.Post("/", metricHandler.CreateMetric)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", metricHandler.GetMetric)
			r.Patch("/", metricHandler.UpdateMetric)
			r.Delete("/", metricHandler.DeleteMetric)
		})
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// サイト台帳（管理用）
		r.Route("/sites/{id}", func(r chi.Router) {
			r.Get("/", siteHandler.GetSite)
			r.Patch("/", siteHandler.UpdateSite)
			r.Delete("/", siteHandler.DeleteSite)
		})

		// ユーザーのサイト追跡
		r.Route("/users/current/sites", func(r chi.Router) {
			r.Get("/", trackingHandler.ListTrackedSites)

			// POST - 追跡登録（登録専用レート制限を追加）
			r.With(deps.RateLimiter.SiteRegistrationMiddleware()).Post("/", trackingHandler.TrackSite)

			r.Route("/{site_id}", func(r chi.Router) {
				r.Patch("/", trackingHandler.UpdateTitle)
				r.Delete("/", trackingHandler.UntrackSite)
			})
		})
	})

	return r
}
