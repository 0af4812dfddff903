package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/weddingrsvp/internal/model"
)

const inviteeColumns = `people.id, people.contact_group, people.first, people.middle, people.last,
	people.full_name, people.rsvp_completed, people.rsvp_received, people.in_person,
	people.stream_only, people.social_email`

// PeopleRepo はpeopleテーブルのリポジトリ。
type PeopleRepo struct {
	q Querier
}

// NewPeopleRepo はPeopleRepoを生成する。
func NewPeopleRepo(q Querier) *PeopleRepo {
	return &PeopleRepo{q: q}
}

// FindBySocialEmail は紐付け済みのsocial_emailで招待客を取得する。見つからない場合はnilを返す。
func (r *PeopleRepo) FindBySocialEmail(ctx context.Context, email string) (*model.Invitee, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+inviteeColumns+` FROM people WHERE social_email = ? ORDER BY id LIMIT 1`,
		email,
	)
	inv, err := scanInvitee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("招待客の取得に失敗しました: %w", err)
	}
	return inv, nil
}

// ValidateSocialEmail はsocial_emailが指定IDの招待客に紐付いているかを返す。
func (r *PeopleRepo) ValidateSocialEmail(ctx context.Context, email string, id int64) (bool, error) {
	var n int64
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM people WHERE social_email = ? AND id = ?`,
		email, id,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("紐付けの検証に失敗しました: %w", err)
	}
	return n > 0, nil
}

// ListByNamePattern はfull_nameがいずれかのLIKEパターンに一致する招待客をID順に返す。
// 比較は小文字化したfull_nameに対して行う。
func (r *PeopleRepo) ListByNamePattern(ctx context.Context, begin, end string) ([]model.Invitee, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+inviteeColumns+` FROM people
		 WHERE LOWER(full_name) LIKE ? OR LOWER(full_name) LIKE ?
		 ORDER BY id`,
		begin, end,
	)
	if err != nil {
		return nil, fmt.Errorf("候補の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectInvitees(rows)
}

// ListGroupMembers は世帯の招待客のうち、excludeID以外をID順に返す。
func (r *PeopleRepo) ListGroupMembers(ctx context.Context, groupID, excludeID int64) ([]model.Invitee, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+inviteeColumns+` FROM people
		 WHERE contact_group = ? AND NOT (id = ?)
		 ORDER BY id`,
		groupID, excludeID,
	)
	if err != nil {
		return nil, fmt.Errorf("世帯メンバーの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectInvitees(rows)
}

// MemberIDs は世帯に所属する全招待客のIDを返す。
func (r *PeopleRepo) MemberIDs(ctx context.Context, groupID int64) (map[int64]struct{}, error) {
	rows, err := r.q.Query(ctx, `SELECT id FROM people WHERE contact_group = ?`, groupID)
	if err != nil {
		return nil, fmt.Errorf("世帯メンバーIDの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("世帯メンバーIDの読み取りに失敗しました: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("世帯メンバーIDの読み取りに失敗しました: %w", err)
	}
	return ids, nil
}

// BindSocialEmail は招待客にsocial_emailを紐付ける。
// 別のメールアドレスで紐付け済みの行は上書きしない。
func (r *PeopleRepo) BindSocialEmail(ctx context.Context, id int64, email string) (bool, error) {
	res, err := r.q.Exec(ctx,
		`UPDATE people SET social_email = ?
		 WHERE id = ? AND (social_email IS NULL OR social_email = '' OR social_email = ?)`,
		email, id, email,
	)
	if err != nil {
		return false, fmt.Errorf("social_emailの紐付けに失敗しました: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// UpdateInPerson は本人の出欠を更新し、rsvp_completedとrsvp_receivedを立てる。
func (r *PeopleRepo) UpdateInPerson(ctx context.Context, id int64, inPerson bool) error {
	_, err := r.q.Exec(ctx,
		`UPDATE people SET in_person = ?, rsvp_completed = TRUE, rsvp_received = TRUE WHERE id = ?`,
		inPerson, id,
	)
	if err != nil {
		return fmt.Errorf("出欠の更新に失敗しました: %w", err)
	}
	return nil
}

// UpdateInPersonBulk は世帯一括更新の1行分を更新する。
func (r *PeopleRepo) UpdateInPersonBulk(ctx context.Context, id int64, inPerson bool, callerID int64) error {
	_, err := r.q.Exec(ctx,
		`UPDATE people SET in_person = ?, rsvp_completed = (id = ?), rsvp_received = TRUE WHERE id = ?`,
		inPerson, callerID, id,
	)
	if err != nil {
		return fmt.Errorf("世帯メンバーの出欠更新に失敗しました: %w", err)
	}
	return nil
}

// ListWithHouseholds は全招待客を世帯情報とLEFT JOINして返す。
func (r *PeopleRepo) ListWithHouseholds(ctx context.Context) ([]model.InviteeWithHousehold, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+inviteeColumns+`, contact_groups.email, contact_groups.verified_email, contact_groups.address
		 FROM people LEFT JOIN contact_groups ON people.contact_group = contact_groups.id
		 ORDER BY people.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("招待客一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var result []model.InviteeWithHousehold
	for rows.Next() {
		var email, address sql.NullString
		var verified sql.NullBool
		inv, err := scanInvitee(rows, &email, &verified, &address)
		if err != nil {
			return nil, fmt.Errorf("招待客一覧の読み取りに失敗しました: %w", err)
		}
		result = append(result, model.InviteeWithHousehold{
			Invitee:       *inv,
			Email:         nullStringValue(email),
			VerifiedEmail: verified.Bool,
			Address:       nullStringValue(address),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("招待客一覧の読み取りに失敗しました: %w", err)
	}
	return result, nil
}

// collectInvitees は行をすべて読み取る。
func collectInvitees(rows interface {
	scanner
	Next() bool
	Err() error
}) ([]model.Invitee, error) {
	var result []model.Invitee
	for rows.Next() {
		inv, err := scanInvitee(rows)
		if err != nil {
			return nil, fmt.Errorf("招待客の読み取りに失敗しました: %w", err)
		}
		result = append(result, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("招待客の読み取りに失敗しました: %w", err)
	}
	return result, nil
}

// scanInvitee はinviteeColumnsの順で1行を読み取る。extraは後続の列。
// NULLの名前・フラグは空文字列・falseとして扱う。
func scanInvitee(s scanner, extra ...any) (*model.Invitee, error) {
	var (
		contactGroup                  sql.NullInt64
		first, middle, last, fullName sql.NullString
		socialEmail                   sql.NullString
		completed, received           sql.NullBool
		inPerson, streamOnly          sql.NullBool
	)

	inv := &model.Invitee{}
	dest := []any{
		&inv.ID, &contactGroup, &first, &middle, &last,
		&fullName, &completed, &received, &inPerson,
		&streamOnly, &socialEmail,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if contactGroup.Valid {
		id := contactGroup.Int64
		inv.ContactGroup = &id
	}
	inv.First = nullStringValue(first)
	inv.Middle = nullStringValue(middle)
	inv.Last = nullStringValue(last)
	inv.FullName = nullStringValue(fullName)
	inv.RSVPCompleted = completed.Bool
	inv.RSVPReceived = received.Bool
	inv.InPerson = inPerson.Bool
	inv.StreamOnly = streamOnly.Bool
	inv.SocialEmail = nullStringValue(socialEmail)

	return inv, nil
}

// compile-time interface check
var _ PeopleRepository = (*PeopleRepo)(nil)
