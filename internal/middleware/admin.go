package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/weddingrsvp/internal/model"
)

// NewAdminMiddleware は管理者の許可リストに含まれる利用者のみを通すミドルウェアを返す。
// 比較は前後の空白を除き大文字小文字を区別しない。
// SessionMiddlewareの後に配置すること。
func NewAdminMiddleware(allowlist []string) func(next http.Handler) http.Handler {
	admins := make(map[string]struct{}, len(allowlist))
	for _, email := range allowlist {
		email = normalizeEmail(email)
		if email != "" {
			admins[email] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := IdentityFromContext(r.Context())
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			if _, ok := admins[normalizeEmail(id.Email)]; !ok {
				slog.Warn("admin access denied", slog.String("email", id.Email))
				WriteErrorResponse(w, http.StatusForbidden, model.NewNotAdminError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
