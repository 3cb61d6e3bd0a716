// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cynco/irportal/internal/auth"
	"github.com/cynco/irportal/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// principalContextKey はリクエストコンテキストに認証済み利用者を格納するためのキー。
	principalContextKey = contextKey("principal")
	// requestIDContextKey はリクエストIDを格納するためのキー。
	requestIDContextKey = contextKey("request_id")
)

// PrincipalLoader はCookie値から利用者を復元する。auth.Serviceが実装する。
type PrincipalLoader interface {
	Load(ctx context.Context, cookieValue string) (*model.Principal, error)
}

// NewSessionMiddleware はセッションCookieから利用者を復元し、
// リクエストコンテキストに注入するミドルウェアを返す。
// Cookieが無い・無効な場合はそのまま次へ渡す。拒否はガードの役割。
func NewSessionMiddleware(loader PrincipalLoader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := loader.Load(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to load session",
					slog.String("error", err.Error()),
					slog.String("request_id", RequestIDFromContext(r.Context())),
				)
				WriteInternalServerError(w)
				return
			}
			if principal == nil {
				next.ServeHTTP(w, r)
				return
			}

			annotatePrincipal(r.Context(), principal.ID)
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// PrincipalFromContext はリクエストコンテキストから認証済み利用者を取得する。
// 未認証の場合はnilを返す。
func PrincipalFromContext(ctx context.Context) *model.Principal {
	p, _ := ctx.Value(principalContextKey).(*model.Principal)
	return p
}

// ContextWithPrincipal はコンテキストに利用者を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, p *model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}
