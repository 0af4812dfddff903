package database

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect は接続先ストアの種類を表す。
type Dialect string

const (
	// DialectPostgres はPostgreSQL（lib/pq）を表す。
	DialectPostgres Dialect = "postgres"
	// DialectSQLite はSQLite（modernc.org/sqlite）を表す。
	DialectSQLite Dialect = "sqlite"
)

// Mode はストアハンドルのアクセスモードを表す。
type Mode int

const (
	// ReadOnly は参照専用のハンドル。
	ReadOnly Mode = iota
	// ReadWrite は更新可能なハンドル。
	ReadWrite
)

// String はログ出力用の文字列表現を返す。
func (m Mode) String() string {
	if m == ReadWrite {
		return "read_write"
	}
	return "read_only"
}

// ErrNotConfigured は接続URLが設定されていない場合に返される。
var ErrNotConfigured = errors.New("database url is not configured")

// ParseURL は接続URLから方言とドライバに渡すDSNを決定する。
// postgres:// / postgresql:// はPostgreSQL、
// sqlite:// / file: / スキームなしのパスはSQLiteファイルとして扱う。
// SQLiteの場合、戻り値のDSNはファイルパスのみ。
func ParseURL(databaseURL string) (Dialect, string, error) {
	u := strings.TrimSpace(databaseURL)
	if u == "" {
		return "", "", ErrNotConfigured
	}

	switch {
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return DialectPostgres, u, nil
	case strings.HasPrefix(u, "sqlite://"):
		return DialectSQLite, strings.TrimPrefix(u, "sqlite://"), nil
	case strings.HasPrefix(u, "file:"):
		path := strings.TrimPrefix(u, "file:")
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		return DialectSQLite, path, nil
	case strings.Contains(u, "://"):
		return "", "", fmt.Errorf("unsupported database url scheme: %s", u[:strings.Index(u, "://")])
	default:
		return DialectSQLite, u, nil
	}
}

// Open はアクセスモードに応じた接続プールを開く。
// sql.Openは接続を試行しないため、実際の接続確認にはdb.Ping()を使用すること。
//
// ReadOnlyの場合、PostgreSQLではdefault_transaction_read_onlyを、
// SQLiteではmode=roのURIを指定してストア側で更新を拒否させる。
func Open(databaseURL string, mode Mode) (*sql.DB, error) {
	dialect, dsn, err := ParseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	switch dialect {
	case DialectPostgres:
		db, err = sql.Open("postgres", postgresDSN(dsn, mode))
	case DialectSQLite:
		db, err = sql.Open("sqlite", sqliteDSN(dsn, mode))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return db, nil
}

// postgresDSN はReadOnlyの場合にランタイムパラメータを付与する。
// lib/pqは未知のパラメータを起動メッセージでサーバーに渡す。
func postgresDSN(dsn string, mode Mode) string {
	if mode != ReadOnly {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}
	q := u.Query()
	q.Set("default_transaction_read_only", "on")
	u.RawQuery = q.Encode()
	return u.String()
}

// sqliteDSN はSQLiteのURI形式DSNを組み立てる。
func sqliteDSN(path string, mode Mode) string {
	params := "_pragma=busy_timeout(5000)"
	if mode == ReadOnly {
		params = "mode=ro&" + params
	} else {
		params += "&_pragma=foreign_keys(1)"
	}
	return "file:" + path + "?" + params
}
