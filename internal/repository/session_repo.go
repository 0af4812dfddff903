package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/weddingrsvp/internal/model"
)

// SessionRepo はsessionテーブルのリポジトリ。
// セッション行は外部のログインフローが書き込むため、ここでは読み取りのみ行う。
type SessionRepo struct {
	q Querier
}

// NewSessionRepo はSessionRepoを生成する。
func NewSessionRepo(q Querier) *SessionRepo {
	return &SessionRepo{q: q}
}

// FindKey は導出コードとログインメールアドレスに一致するセッション行のkeyを返す。
func (r *SessionRepo) FindKey(ctx context.Context, code, email string) (string, bool, error) {
	var key string
	err := r.q.QueryRow(ctx,
		`SELECT key FROM session WHERE key = ? AND login_email = ?`,
		code, email,
	).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("セッションの照合に失敗しました: %w", err)
	}
	return key, true, nil
}

// List は全セッションを新しい順に返す。
func (r *SessionRepo) List(ctx context.Context) ([]model.SessionEntry, error) {
	rows, err := r.q.Query(ctx,
		`SELECT login_email, login_name, created_at FROM session ORDER BY created_at DESC, login_email`,
	)
	if err != nil {
		return nil, fmt.Errorf("セッション一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

// ListUnmatched はどの招待客にも紐付いていないログインメールアドレスのセッションを返す。
// 名前の照合で本人を特定できていないログイン利用者の確認に使う。
func (r *SessionRepo) ListUnmatched(ctx context.Context) ([]model.SessionEntry, error) {
	rows, err := r.q.Query(ctx,
		`SELECT session.login_email, MAX(session.login_name), MAX(session.created_at)
		 FROM session LEFT JOIN people ON people.social_email = session.login_email
		 WHERE people.id IS NULL
		 GROUP BY session.login_email
		 ORDER BY session.login_email`,
	)
	if err != nil {
		return nil, fmt.Errorf("未照合セッションの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

func collectSessions(rows interface {
	scanner
	Next() bool
	Err() error
}) ([]model.SessionEntry, error) {
	var result []model.SessionEntry
	for rows.Next() {
		var e model.SessionEntry
		var name, createdAt sql.NullString
		if err := rows.Scan(&e.LoginEmail, &name, &createdAt); err != nil {
			return nil, fmt.Errorf("セッションの読み取りに失敗しました: %w", err)
		}
		e.LoginName = nullStringValue(name)
		e.CreatedAt = nullStringValue(createdAt)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("セッションの読み取りに失敗しました: %w", err)
	}
	return result, nil
}

// compile-time interface check
var _ SessionRepository = (*SessionRepo)(nil)
