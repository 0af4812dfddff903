// Package repository はストアに対するステートメントを定義する。
// リポジトリはリクエストごとのハンドル（Querier）の上に都度組み立てる。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/weddingrsvp/internal/database"
	"github.com/hitoshi/weddingrsvp/internal/model"
)

// Querier はリポジトリが必要とするハンドルの操作。
// *database.Handleが満たす。
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*database.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *database.Row
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PeopleRepository は招待客（people）のステートメント群。
type PeopleRepository interface {
	// FindBySocialEmail は紐付け済みのsocial_emailで招待客を取得する。見つからない場合はnilを返す。
	FindBySocialEmail(ctx context.Context, email string) (*model.Invitee, error)

	// ValidateSocialEmail はsocial_emailが指定IDの招待客に紐付いているかを返す。
	ValidateSocialEmail(ctx context.Context, email string, id int64) (bool, error)

	// ListByNamePattern はfull_nameがいずれかのLIKEパターンに一致する招待客をID順に返す。
	// 本人特定の候補を広めに取得するためのもので、最終判定ではない。
	ListByNamePattern(ctx context.Context, begin, end string) ([]model.Invitee, error)

	// ListGroupMembers は世帯の招待客のうち、excludeID以外をID順に返す。
	ListGroupMembers(ctx context.Context, groupID, excludeID int64) ([]model.Invitee, error)

	// MemberIDs は世帯に所属する全招待客のIDを返す。
	MemberIDs(ctx context.Context, groupID int64) (map[int64]struct{}, error)

	// BindSocialEmail は招待客にsocial_emailを紐付ける。
	// 未紐付けまたは同じメールアドレスで紐付け済みの場合のみ書き込み、書き込んだかを返す。
	BindSocialEmail(ctx context.Context, id int64, email string) (bool, error)

	// UpdateInPerson は本人の出欠を更新し、rsvp_completedとrsvp_receivedを立てる。
	UpdateInPerson(ctx context.Context, id int64, inPerson bool) error

	// UpdateInPersonBulk は世帯一括更新の1行分を更新する。
	// rsvp_completedは操作者本人の行（id == callerID）のみ立てる。
	UpdateInPersonBulk(ctx context.Context, id int64, inPerson bool, callerID int64) error

	// ListWithHouseholds は全招待客を世帯情報とLEFT JOINして返す。
	ListWithHouseholds(ctx context.Context) ([]model.InviteeWithHousehold, error)
}

// HouseholdRepository は世帯（contact_groups）のステートメント群。
type HouseholdRepository interface {
	// FindByEmail は連絡先メールアドレスで世帯を取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Household, error)

	// FindByID は指定IDの世帯を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Household, error)
}

// SessionRepository はセッション（session）のステートメント群。読み取り専用。
type SessionRepository interface {
	// FindKey は導出コードとログインメールアドレスに一致するセッション行のkeyを返す。
	FindKey(ctx context.Context, code, email string) (string, bool, error)

	// List は全セッションを新しい順に返す。
	List(ctx context.Context) ([]model.SessionEntry, error)

	// ListUnmatched はどの招待客にも紐付いていないログインメールアドレスのセッションを返す。
	ListUnmatched(ctx context.Context) ([]model.SessionEntry, error)
}

// scanner は*database.Rowと*database.Rowsに共通するScan。
type scanner interface {
	Scan(dest ...any) error
}

func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
