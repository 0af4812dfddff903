// Package identity はログイン時の表示名から招待客レコードを特定する。
//
// 候補は呼び出し側がfull_nameのLIKE検索で広めに取得しておき、
// Resolveが部分一致のフォールバック連鎖で高々1件に絞り込む。
// 曖昧な場合は推測せずnilを返す。
package identity

import (
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/weddingrsvp/internal/model"
)

// Contains はnameがfieldを部分文字列として含むかを返す。
// 空のfieldは常に不一致とする（NULLや空カラムを一致とみなさない）。
func Contains(name, field string) bool {
	return field != "" && strings.Contains(name, field)
}

// Resolve は候補の中から表示名claimedNameに該当する招待客を1件選ぶ。
// householdが判明している場合は世帯内で絞り込み、不明な場合は氏名の一致段階で選ぶ。
// 比較は大文字小文字を区別しない。該当なし、または絞り切れない場合はnil。
func Resolve(candidates []model.Invitee, claimedName string, household *model.Household) *model.Invitee {
	name := strings.ToLower(claimedName)
	if household != nil {
		return resolveInHousehold(candidates, name, household.ID)
	}
	return resolveByTiers(candidates, name)
}

func resolveInHousehold(candidates []model.Invitee, name string, householdID int64) *model.Invitee {
	members := filter(candidates, func(c *model.Invitee) bool {
		return c.BelongsTo(householdID)
	})
	switch len(members) {
	case 0:
		return nil
	case 1:
		return &members[0]
	}

	narrowed := filter(members, func(c *model.Invitee) bool {
		initialMatch := Contains(name, initial(c.First)) || Contains(name, initial(c.Middle))
		return initialMatch && Contains(name, lower(c.Last))
	})
	switch len(narrowed) {
	case 0:
		return nil
	case 1:
		return &narrowed[0]
	}

	for i := range narrowed {
		if Contains(name, lower(narrowed[i].First)) {
			return &narrowed[i]
		}
	}
	for i := range narrowed {
		if Contains(name, lower(narrowed[i].Middle)) {
			return &narrowed[i]
		}
	}
	return nil
}

// tiers は世帯不明時の一致段階。先頭から順に試す。
var tiers = []func(name string, c *model.Invitee) bool{
	func(name string, c *model.Invitee) bool {
		return Contains(name, lower(c.First)) && Contains(name, lower(c.Middle)) && Contains(name, lower(c.Last))
	},
	func(name string, c *model.Invitee) bool {
		return Contains(name, lower(c.First)) && Contains(name, lower(c.Last))
	},
	func(name string, c *model.Invitee) bool {
		return Contains(name, lower(c.Middle)) && Contains(name, lower(c.Last))
	},
}

func resolveByTiers(candidates []model.Invitee, name string) *model.Invitee {
	for _, match := range tiers {
		for i := range candidates {
			if match(name, &candidates[i]) {
				c := candidates[i]
				return &c
			}
		}
	}
	return nil
}

// NamePattern は候補取得用のLIKEパターンを返す。
// beginは先頭の語で始まる名前、endは末尾の語で終わる名前に一致する。
// 表示名が空の場合は空文字列を返す。
func NamePattern(claimedName string) (begin, end string) {
	fields := strings.Fields(strings.ToLower(claimedName))
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0] + "%", "%" + fields[len(fields)-1]
}

func filter(candidates []model.Invitee, keep func(*model.Invitee) bool) []model.Invitee {
	var result []model.Invitee
	for i := range candidates {
		if keep(&candidates[i]) {
			result = append(result, candidates[i])
		}
	}
	return result
}

func initial(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r == utf8.RuneError {
		return ""
	}
	return strings.ToLower(string(r))
}

func lower(s string) string {
	return strings.ToLower(s)
}
