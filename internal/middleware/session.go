// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/tienda/internal/model"
)

const sessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// authContextKey はリクエストコンテキストに認証コンテキストを格納するためのキー。
var authContextKey = contextKey("auth_context")

// AuthFinder はセッションIDから認証コンテキストを解決するインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type AuthFinder interface {
	FindAuthContext(ctx context.Context, id string) (*model.AuthContext, error)
}

// RequireSession はHTTP Only Cookieからセッションを読み取り、
// 有効性を検証するミドルウェアを返す。
// 認証コンテキストをリクエストコンテキストに注入する。
// 未認証リクエストには401 Unauthorizedを返す。
func RequireSession(finder AuthFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := resolveAuth(finder, r)
			if auth == nil {
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), authContextKey, auth)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalSession はセッションの有無に関わらずリクエストを通すミドルウェアを返す。
// 有効なセッションがあれば認証コンテキストを注入し、なければ未認証のまま
// 通過させる。価格の可視性のみが認証状態に依存する読み取り系エンドポイントで
// 使用する。無効なCookieは未認証と同じ扱いでエラーにはしない。
func OptionalSession(finder AuthFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth := resolveAuth(finder, r); auth != nil {
				r = r.WithContext(context.WithValue(r.Context(), authContextKey, auth))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin は管理者権限を要求するミドルウェアを返す。
// RequireSessionの後に配置する。認証済みだが管理者でない場合は403を返す。
func RequireAdmin() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth, err := AuthFromContext(r.Context())
			if err != nil {
				writeUnauthorized(w)
				return
			}
			if !auth.IsAdmin {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprint(w, `{"code":"ADMIN_REQUIRED","message":"Se requieren permisos de administrador."}`)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolveAuth はCookieのセッションIDから認証コンテキストを解決する。
// Cookieなし・無効・期限切れのいずれもnilを返す。
func resolveAuth(finder AuthFinder, r *http.Request) *model.AuthContext {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	auth, err := finder.FindAuthContext(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to resolve auth context",
			slog.String("error", err.Error()),
		)
		return nil
	}
	return auth
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprint(w, `{"code":"UNAUTHORIZED","message":"Inicia sesión para continuar."}`)
}

// AuthFromContext はリクエストコンテキストから認証コンテキストを取得する。
// RequireSessionを通過したリクエストでのみ有効。
func AuthFromContext(ctx context.Context) (*model.AuthContext, error) {
	auth, ok := ctx.Value(authContextKey).(*model.AuthContext)
	if !ok || auth == nil {
		return nil, fmt.Errorf("auth context not found in request context")
	}
	return auth, nil
}

// IsAuthenticated はリクエストが認証済みかを返す。
// OptionalSessionを通過した読み取り系エンドポイントで使用する。
func IsAuthenticated(ctx context.Context) bool {
	_, err := AuthFromContext(ctx)
	return err == nil
}

// ContextWithAuth はコンテキストに認証コンテキストを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

// SessionCookieName はセッションCookieの名前を返す。
func SessionCookieName() string {
	return sessionCookieName
}
