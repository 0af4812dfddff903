// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/weddingrsvp/internal/auth"
	"github.com/hitoshi/weddingrsvp/internal/metrics"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに検証済みの利用者を格納するためのキー。
var identityContextKey = contextKey("identity")

// SessionVerifier はセッションクッキーの検証に必要なインターフェース。
// *auth.Verifierが満たす。
type SessionVerifier interface {
	Verify(ctx context.Context, c auth.Cookies) (bool, error)
}

// NewSessionMiddleware はセッションクッキー（login_name, login_email, login_id）を検証するミドルウェアを返す。
// 検証済みの利用者をリクエストコンテキストに注入する。
// 検証に失敗したリクエストにはボディなしの401を、ストア障害時にはDB002の500を返す。
func NewSessionMiddleware(verifier SessionVerifier, mc metrics.MetricsCollector) func(next http.Handler) http.Handler {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookies := auth.ReadCookies(r)

			ok, err := verifier.Verify(r.Context(), cookies)
			if err != nil {
				slog.Error("failed to verify session",
					slog.String("email", cookies.Email),
					slog.String("error", err.Error()),
				)
				mc.RecordAuthResult(metrics.AuthError)
				mc.RecordStoreFailure()
				WriteStoreFailure(w)
				return
			}
			if !ok {
				mc.RecordAuthResult(metrics.AuthRejected)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			mc.RecordAuthResult(metrics.AuthAccepted)
			annotateEmail(r.Context(), cookies.Email)
			ctx := ContextWithIdentity(r.Context(), auth.Identity{
				Name:  cookies.Name,
				Email: cookies.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext はリクエストコンテキストから検証済みの利用者を取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (auth.Identity, error) {
	id, ok := ctx.Value(identityContextKey).(auth.Identity)
	if !ok || id.Email == "" {
		return auth.Identity{}, fmt.Errorf("identity not found in context")
	}
	return id, nil
}

// ContextWithIdentity はコンテキストに利用者を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}
