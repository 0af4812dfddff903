package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
)

var (
	// ErrStoreUnavailable はストアへの接続を取得できない場合に返される。
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrQueryFailed はステートメントの実行がストアで失敗した場合に返される。
	// これを受け取った呼び出し側は残りの処理を打ち切る。
	// ハンドルは既にクローズ済み。
	ErrQueryFailed = errors.New("query failed")
)

// Gateway はパラメータ化クエリの薄い窓口。
// 参照専用と更新用の2つの接続プールを保持し、
// リクエストごとに専有ハンドルを払い出す。
type Gateway struct {
	dialect Dialect
	ro      *sql.DB
	rw      *sql.DB
	logger  *slog.Logger
}

// NewGateway は接続URLからGatewayを生成する。
// URLが空の場合はErrNotConfiguredを返す。
func NewGateway(databaseURL string, logger *slog.Logger) (*Gateway, error) {
	dialect, _, err := ParseURL(databaseURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	rw, err := Open(databaseURL, ReadWrite)
	if err != nil {
		return nil, err
	}
	ro, err := Open(databaseURL, ReadOnly)
	if err != nil {
		rw.Close()
		return nil, err
	}

	return &Gateway{
		dialect: dialect,
		ro:      ro,
		rw:      rw,
		logger:  logger,
	}, nil
}

// Dialect は接続先の方言を返す。
func (g *Gateway) Dialect() Dialect {
	return g.dialect
}

// Ping は両方の接続プールの疎通を確認する。
func (g *Gateway) Ping(ctx context.Context) error {
	if g == nil {
		return ErrNotConfigured
	}
	if err := g.rw.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := g.ro.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Close は接続プールを閉じる。
func (g *Gateway) Close() error {
	if g == nil {
		return nil
	}
	return errors.Join(g.ro.Close(), g.rw.Close())
}

// Open は指定モードのハンドルを1つ払い出す。
// ハンドルはリクエスト間で共有せず、呼び出し側はすべての終了経路でCloseすること。
func (g *Gateway) Open(ctx context.Context, mode Mode) (*Handle, error) {
	if g == nil {
		return nil, ErrNotConfigured
	}

	pool := g.ro
	if mode == ReadWrite {
		pool = g.rw
	}

	conn, err := pool.Conn(ctx)
	if err != nil {
		g.logger.Error("failed to open store handle",
			slog.String("mode", mode.String()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &Handle{
		conn:    conn,
		dialect: g.dialect,
		mode:    mode,
		logger:  g.logger,
	}, nil
}

// Handle は1リクエスト専有のストアハンドル。
// ステートメントが1つでも失敗するとハンドルは失敗状態になってクローズされ、
// 以降の呼び出しはストアに触れずにErrQueryFailedを返す。
type Handle struct {
	conn    *sql.Conn
	dialect Dialect
	mode    Mode
	logger  *slog.Logger

	mu     sync.Mutex
	failed bool
	closed bool
}

// Mode はハンドルのアクセスモードを返す。
func (h *Handle) Mode() Mode {
	return h.mode
}

// Close はハンドルをプールに返却する。複数回呼んでも安全。
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closeLocked()
}

func (h *Handle) closeLocked() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if err := h.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}

// usable はハンドルが利用可能かを返す。失敗またはクローズ済みならErrQueryFailed。
func (h *Handle) usable() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failed || h.closed {
		return fmt.Errorf("%w: handle is no longer usable", ErrQueryFailed)
	}
	return nil
}

// fail は失敗経路の共通処理。ログ出力、ハンドルのクローズ、番兵エラーの生成を行う。
// 呼び出し時点で当該ハンドルの*sql.Rowsは閉じていること。
func (h *Handle) fail(query string, err error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.failed {
		h.failed = true
		h.logger.Error("DB ERROR",
			slog.String("mode", h.mode.String()),
			slog.String("statement", compactStatement(query)),
			slog.String("error", err.Error()),
		)
		if cerr := h.closeLocked(); cerr != nil {
			h.logger.Warn("failed to close store handle", slog.String("error", cerr.Error()))
		}
	}

	return fmt.Errorf("%w: %v", ErrQueryFailed, err)
}

// Query は複数行を返すステートメントを実行する。
func (h *Handle) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	if err := h.usable(); err != nil {
		return nil, err
	}
	rows, err := h.conn.QueryContext(ctx, h.rebind(query), args...)
	if err != nil {
		return nil, h.fail(query, err)
	}
	return &Rows{Rows: rows, h: h, query: query}, nil
}

// QueryRow は高々1行を返すステートメントを実行する。
// エラーはRow.Scanで報告される。sql.ErrNoRowsは失敗扱いにしない。
func (h *Handle) QueryRow(ctx context.Context, query string, args ...any) *Row {
	if err := h.usable(); err != nil {
		return &Row{err: err}
	}
	return &Row{row: h.conn.QueryRowContext(ctx, h.rebind(query), args...), h: h, query: query}
}

// Exec は行を返さないステートメントを実行する。
func (h *Handle) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if err := h.usable(); err != nil {
		return nil, err
	}
	res, err := h.conn.ExecContext(ctx, h.rebind(query), args...)
	if err != nil {
		return nil, h.fail(query, err)
	}
	return res, nil
}

func (h *Handle) rebind(query string) string {
	if h.dialect == DialectPostgres {
		return Rebind(query)
	}
	return query
}

// Rows は*sql.Rowsのラッパー。ScanとErrの失敗をハンドルの失敗経路に流す。
type Rows struct {
	*sql.Rows
	h     *Handle
	query string
}

// Scan は現在行を読み取る。
func (r *Rows) Scan(dest ...any) error {
	if err := r.Rows.Scan(dest...); err != nil {
		r.Rows.Close()
		return r.h.fail(r.query, err)
	}
	return nil
}

// Err は反復中に発生したエラーを返す。
func (r *Rows) Err() error {
	if err := r.Rows.Err(); err != nil {
		r.Rows.Close()
		return r.h.fail(r.query, err)
	}
	return nil
}

// Row はQueryRowの結果。
type Row struct {
	row   *sql.Row
	h     *Handle
	query string
	err   error
}

// Scan は結果行を読み取る。該当行がない場合はsql.ErrNoRowsを返す。
func (r *Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	err := r.row.Scan(dest...)
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return r.h.fail(r.query, err)
}

// Rebind は?プレースホルダをPostgreSQLの$1, $2, ...に置き換える。
// シングルクォートで囲まれた文字列リテラル内の?は置き換えない。
func Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// compactStatement はログ用にステートメントの空白を詰める。
func compactStatement(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
