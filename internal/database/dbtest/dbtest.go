// Package dbtest はテスト用に、マイグレーション済みの一時SQLiteストアを用意する。
package dbtest

import (
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/hitoshi/weddingrsvp/internal/database"
)

// NewURL はテストごとの一時ディレクトリにSQLiteファイルを作成し、
// マイグレーションを適用した接続URLを返す。
func NewURL(t testing.TB) string {
	t.Helper()

	dbURL := "sqlite://" + filepath.Join(t.TempDir(), "rsvp.db")
	if err := database.RunMigrations(dbURL); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}
	return dbURL
}

// NewGateway はマイグレーション済みストアに接続したGatewayを返す。
// seedに渡したステートメントは接続前に順に実行される。
func NewGateway(t testing.TB, seed ...string) (*database.Gateway, string) {
	t.Helper()

	dbURL := NewURL(t)
	Exec(t, dbURL, seed...)

	gw, err := database.NewGateway(dbURL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Gatewayの生成に失敗: %v", err)
	}
	t.Cleanup(func() { gw.Close() })

	return gw, dbURL
}

// Exec は更新用接続でステートメントを順に実行する。
func Exec(t testing.TB, dbURL string, stmts ...string) {
	t.Helper()
	if len(stmts) == 0 {
		return
	}

	db := open(t, dbURL, database.ReadWrite)
	defer db.Close()

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("ステートメントの実行に失敗: %v\n%s", err, stmt)
		}
	}
}

// QueryInt は単一の整数値を返すクエリを実行する。
func QueryInt(t testing.TB, dbURL, query string, args ...any) int64 {
	t.Helper()

	db := open(t, dbURL, database.ReadOnly)
	defer db.Close()

	var v int64
	if err := db.QueryRow(query, args...).Scan(&v); err != nil {
		t.Fatalf("クエリの実行に失敗: %v\n%s", err, query)
	}
	return v
}

// QueryString は単一の文字列値を返すクエリを実行する。NULLは空文字列になる。
func QueryString(t testing.TB, dbURL, query string, args ...any) string {
	t.Helper()

	db := open(t, dbURL, database.ReadOnly)
	defer db.Close()

	var v sql.NullString
	if err := db.QueryRow(query, args...).Scan(&v); err != nil {
		t.Fatalf("クエリの実行に失敗: %v\n%s", err, query)
	}
	return v.String
}

func open(t testing.TB, dbURL string, mode database.Mode) *sql.DB {
	t.Helper()
	db, err := database.Open(dbURL, mode)
	if err != nil {
		t.Fatalf("データベースのオープンに失敗: %v", err)
	}
	return db
}

// Fixture はテストで共通して使う世帯と招待客。
//
//	contact_groups: 1 lee家 (lee@example.com), 2 park家 (park@example.com)
//	people: 1 anne lee, 2 bob lee, 3 carol j park, 4 dan park
var Fixture = []string{
	`INSERT INTO contact_groups (id, email, verified_email, address) VALUES (1, 'lee@example.com', 1, '1 Main St')`,
	`INSERT INTO contact_groups (id, email, verified_email, address) VALUES (2, 'park@example.com', 0, '<b>2</b> Side St')`,
	`INSERT INTO people (id, contact_group, first, middle, last, full_name) VALUES (1, 1, 'anne', '', 'lee', 'anne lee')`,
	`INSERT INTO people (id, contact_group, first, middle, last, full_name) VALUES (2, 1, 'bob', NULL, 'lee', 'bob lee')`,
	`INSERT INTO people (id, contact_group, first, middle, last, full_name) VALUES (3, 2, 'carol', 'jean', 'park', 'carol jean park')`,
	`INSERT INTO people (id, contact_group, first, middle, last, full_name) VALUES (4, 2, 'dan', '', 'park', 'dan park')`,
}
