package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/cardeal/internal/metrics"
	"github.com/hitoshi/cardeal/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	StatusRecorder    middleware.StatusRecorder
	MetricsGatherer   prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// サブスクリプション
	SubscriptionService SubscriptionServiceInterface
	Entitlement         EntitlementProvider

	// ポリシー同意
	PolicyService PolicyServiceInterface

	// OCR事前入力
	OCRService OCRServiceInterface

	// 人物・車両・契約
	PersonService   PersonServiceInterface
	CarService      CarServiceInterface
	ContractService ContractServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → [Session → RateLimit(General) → CSRF]
//
// ログインと公開エンドポイントはセッション検証の外に配置する。
// POST /loginにはIP単位のログイン専用レート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.Entitlement, deps.AuthConfig)
	subHandler := NewSubscriptionHandler(deps.SubscriptionService)
	policyHandler := NewPolicyHandler(deps.PolicyService)
	ocrHandler := NewOCRHandler(deps.OCRService)
	personHandler := NewPersonHandler(deps.PersonService)
	carHandler := NewCarHandler(deps.CarService)
	contractHandler := NewContractHandler(deps.ContractService)

	// --- 認証不要のルート ---

	// ログイン（IP単位の専用レート制限付き）
	r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)

	// Gateway配信レポートWebhook（署名検証で認証）
	r.Post("/telegram/callback", authHandler.Webhook)

	// 公開ポリシー一覧
	r.Get("/policies/main", policyHandler.Main)

	// 販売中サブスクリプション一覧
	r.Get("/v1/subs/available", subHandler.Available)

	// CSRFトークン取得
	r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Prometheusメトリクス
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// セッション管理
		r.Post("/logout", authHandler.Logout)
		r.Get("/current", authHandler.Current)

		// ポリシー同意
		r.Get("/policies/user", policyHandler.User)
		r.Post("/policies/sign", policyHandler.Sign)
		r.Post("/policies/unsign", policyHandler.Unsign)

		// OCR事前入力
		r.Route("/v1/ocr", func(r chi.Router) {
			r.Post("/passport", ocrHandler.RecognizePassport)
			r.Post("/sts", ocrHandler.RecognizeSTS)
		})

		// 人物・パスポート
		r.Route("/v1/passport", func(r chi.Router) {
			r.Post("/", personHandler.Save)
			r.Get("/{id}", personHandler.Get)
		})

		// 車両
		r.Route("/v1/car", func(r chi.Router) {
			r.Post("/", carHandler.Save)
			r.Get("/{id}", carHandler.Get)
		})

		// 売買契約
		r.Route("/v1/contracts", func(r chi.Router) {
			r.Get("/", contractHandler.List)
			r.Post("/", contractHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", contractHandler.Get)
				r.Put("/", contractHandler.Update)
				r.Delete("/", contractHandler.Delete)
			})
		})
	})

	return r
}
