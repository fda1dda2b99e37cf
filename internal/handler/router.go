package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/tienda/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	AuthFinder        middleware.AuthFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger
	StatusObserver    middleware.StatusObserver

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// カタログ
	Catalog CatalogInterface

	// カート
	CartService CartServiceInterface
	CartMetrics CartMetrics

	// 決済確定・注文履歴
	CheckoutService CheckoutServiceInterface

	// ユーザー管理
	UserService  UserServiceInterface
	AdminService AdminServiceInterface

	// 運用エンドポイント
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → CORS → SecurityHeaders → Logging → CSRF
//
// その内側で、書き込み系ルートに RequireSession → RateLimit(General)、
// カタログ閲覧ルートに OptionalSession を適用する。
// 決済確定には専用のレート制限（Checkout）を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusObserver))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	productHandler := NewProductHandler(deps.Catalog)
	cartHandler := NewCartHandler(deps.CartService, deps.CartMetrics)
	checkoutHandler := NewCheckoutHandler(deps.CheckoutService)
	profileHandler := NewProfileHandler(deps.UserService)
	adminHandler := NewAdminHandler(deps.AdminService)

	// --- 運用エンドポイント（CSRF対象外） ---

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- CSRF保護下のアプリケーションルート ---

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		// 認証
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)

		// カタログ閲覧（未認証可、価格可視性のみセッションに依存）
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalSession(deps.AuthFinder))

			r.Get("/api/products", productHandler.Search)
			r.Get("/api/products/{category}", productHandler.ListByCategory)
			r.Get("/api/product-details/{id}", productHandler.GetDetails)
		})

		// 認証必須ルート
		// ミドルウェアスタック: RequireSession → RateLimit(General)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(deps.AuthFinder))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			// カート操作
			r.Route("/cart", func(r chi.Router) {
				r.Post("/add", cartHandler.Add)
				r.Post("/remove", cartHandler.Remove)
				r.Get("/view", cartHandler.View)
			})

			// 決済確定（専用レート制限を追加）
			r.With(deps.RateLimiter.CheckoutMiddleware()).
				Post("/api/proceed-payment", checkoutHandler.ProceedPayment)

			// 注文履歴
			r.Get("/orders", checkoutHandler.ListOrders)

			// プロフィール管理
			r.Get("/profile", profileHandler.GetProfile)
			r.Put("/profile", profileHandler.UpdateProfile)
			r.Post("/change-password", profileHandler.ChangePassword)

			// 管理者操作
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin())

				r.Post("/users", adminHandler.CreateUser)
			})
		})
	})

	return r
}
