package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/weddingrsvp/internal/model"
)

// HouseholdRepo はcontact_groupsテーブルのリポジトリ。
type HouseholdRepo struct {
	q Querier
}

// NewHouseholdRepo はHouseholdRepoを生成する。
func NewHouseholdRepo(q Querier) *HouseholdRepo {
	return &HouseholdRepo{q: q}
}

// FindByEmail は連絡先メールアドレスで世帯を取得する。見つからない場合はnilを返す。
func (r *HouseholdRepo) FindByEmail(ctx context.Context, email string) (*model.Household, error) {
	return r.findOne(ctx,
		`SELECT id, email, verified_email, address FROM contact_groups WHERE email = ? ORDER BY id LIMIT 1`,
		email,
	)
}

// FindByID は指定IDの世帯を取得する。見つからない場合はnilを返す。
func (r *HouseholdRepo) FindByID(ctx context.Context, id int64) (*model.Household, error) {
	return r.findOne(ctx,
		`SELECT id, email, verified_email, address FROM contact_groups WHERE id = ?`,
		id,
	)
}

func (r *HouseholdRepo) findOne(ctx context.Context, query string, arg any) (*model.Household, error) {
	h := &model.Household{}
	var email, address sql.NullString
	var verified sql.NullBool

	err := r.q.QueryRow(ctx, query, arg).Scan(&h.ID, &email, &verified, &address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("世帯の取得に失敗しました: %w", err)
	}

	h.Email = nullStringValue(email)
	h.VerifiedEmail = verified.Bool
	h.Address = nullStringValue(address)
	return h, nil
}

// compile-time interface check
var _ HouseholdRepository = (*HouseholdRepo)(nil)
