package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/weddingrsvp/internal/database"
	"github.com/hitoshi/weddingrsvp/internal/repository"
)

// クッキー名は外部ログインフローと共有する。
const (
	CookieLoginName  = "login_name"
	CookieLoginEmail = "login_email"
	CookieLoginID    = "login_id"
)

// Cookies はリクエストが持つセッションクッキーの3点組。
type Cookies struct {
	Name  string
	Email string
	ID    string
}

// Complete は3つすべてが揃っているかを返す。
func (c Cookies) Complete() bool {
	return c.Name != "" && c.Email != "" && c.ID != ""
}

// Identity は検証済みの利用者を表す。
type Identity struct {
	Name  string
	Email string
}

// ReadCookies はリクエストからセッションクッキーを読み取る。
// 値はdecodeURIComponent相当でデコードする（デコードできない場合はそのまま）。
func ReadCookies(r *http.Request) Cookies {
	return Cookies{
		Name:  cookieValue(r, CookieLoginName),
		Email: cookieValue(r, CookieLoginEmail),
		ID:    cookieValue(r, CookieLoginID),
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	v := c.Value
	if strings.IndexByte(v, '%') >= 0 {
		if decoded, err := url.PathUnescape(v); err == nil {
			v = decoded
		}
	}
	return v
}

// SessionKeyFinder はセッション行の照合に必要なストア操作。
type SessionKeyFinder interface {
	FindSessionKey(ctx context.Context, code, email string) (string, bool, error)
}

// Verifier はセッションクッキーを検証する。
// 結果はキャッシュせず、呼び出しごとにダイジェスト計算と1回の点検索を行う。
type Verifier struct {
	finder        SessionKeyFinder
	digest        Digest
	canonicalHost string
}

// NewVerifier はVerifierを生成する。digestがnilの場合はMD5Digestを使う。
func NewVerifier(finder SessionKeyFinder, digest Digest, canonicalHost string) *Verifier {
	if digest == nil {
		digest = MD5Digest{}
	}
	return &Verifier{
		finder:        finder,
		digest:        digest,
		canonicalHost: canonicalHost,
	}
}

// Token はクッキーの名前とメールアドレスから期待されるlogin_idを導出する。
func (v *Verifier) Token(name, email string) string {
	return DeriveToken(v.digest, name, email, v.canonicalHost)
}

// Verify はクッキー3点組を検証する。
// 1つでも欠けている場合、または導出トークンがlogin_idと異なる場合は
// ストアにアクセスせずfalseを返す。
// ストアエラーはfalseとともに返す。
func (v *Verifier) Verify(ctx context.Context, c Cookies) (bool, error) {
	if !c.Complete() {
		return false, nil
	}

	token := v.Token(c.Name, c.Email)
	if token != c.ID {
		return false, nil
	}

	key, found, err := v.finder.FindSessionKey(ctx, token, c.Email)
	if err != nil {
		return false, err
	}
	return found && key == token, nil
}

// StoreFinder はGatewayから参照専用ハンドルを開いてセッション行を照合する。
// ハンドルは呼び出しごとに開き、すべての経路で閉じる。
type StoreFinder struct {
	gateway *database.Gateway
}

// NewStoreFinder はStoreFinderを生成する。
func NewStoreFinder(gateway *database.Gateway) *StoreFinder {
	return &StoreFinder{gateway: gateway}
}

// FindSessionKey は導出コードとログインメールアドレスに一致するセッション行のkeyを返す。
func (f *StoreFinder) FindSessionKey(ctx context.Context, code, email string) (string, bool, error) {
	h, err := f.gateway.Open(ctx, database.ReadOnly)
	if err != nil {
		return "", false, fmt.Errorf("セッションストアを開けませんでした: %w", err)
	}
	defer h.Close()

	return repository.NewSessionRepo(h).FindKey(ctx, code, email)
}

// compile-time interface check
var _ SessionKeyFinder = (*StoreFinder)(nil)
