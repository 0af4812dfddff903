// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ListingSanitizer は管理者向け一覧に含まれる文字列からHTMLを取り除く。
// 氏名や住所は招待客リストの取り込みや外部ログインフローから入るため、
// 管理画面でHTMLとして解釈されないようbluemondayのStrictPolicyでタグを取り除く。
// 一覧はJSONで返すため、残ったテキストはエスケープせず元の文字のまま返す。
package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/weddingrsvp/internal/model"
)

// ListingSanitizerService は管理者向け一覧の無害化のインターフェースを定義する。
type ListingSanitizerService interface {
	// Sanitize はタグをすべて除去し、残りのテキストをそのまま返す。
	// 空文字列の入力には空文字列を返す。
	Sanitize(s string) string

	// SanitizePeople は招待客一覧の文字列フィールドを無害化した複製を返す。
	SanitizePeople(people []model.InviteeWithHousehold) []model.InviteeWithHousehold

	// SanitizeSessions はセッション一覧の文字列フィールドを無害化した複製を返す。
	SanitizeSessions(sessions []model.SessionEntry) []model.SessionEntry
}

// listingSanitizer はListingSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフなので共有する。
type listingSanitizer struct {
	policy *bluemonday.Policy
}

// NewListingSanitizer はListingSanitizerServiceの新しいインスタンスを生成する。
func NewListingSanitizer() *listingSanitizer {
	return &listingSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はタグをすべて除去する。
// StrictPolicyは残りのテキストをHTMLエスケープするため、JSON用に元へ戻す。
func (s *listingSanitizer) Sanitize(v string) string {
	if v == "" {
		return ""
	}
	return html.UnescapeString(s.policy.Sanitize(v))
}

// SanitizePeople は招待客一覧を無害化する。入力のスライスは変更しない。
func (s *listingSanitizer) SanitizePeople(people []model.InviteeWithHousehold) []model.InviteeWithHousehold {
	out := make([]model.InviteeWithHousehold, len(people))
	for i, p := range people {
		p.First = s.Sanitize(p.First)
		p.Middle = s.Sanitize(p.Middle)
		p.Last = s.Sanitize(p.Last)
		p.FullName = s.Sanitize(p.FullName)
		p.SocialEmail = s.Sanitize(p.SocialEmail)
		p.Email = s.Sanitize(p.Email)
		p.Address = s.Sanitize(p.Address)
		out[i] = p
	}
	return out
}

// SanitizeSessions はセッション一覧を無害化する。入力のスライスは変更しない。
func (s *listingSanitizer) SanitizeSessions(sessions []model.SessionEntry) []model.SessionEntry {
	out := make([]model.SessionEntry, len(sessions))
	for i, e := range sessions {
		e.LoginEmail = s.Sanitize(e.LoginEmail)
		e.LoginName = s.Sanitize(e.LoginName)
		out[i] = e
	}
	return out
}

// compile-time interface check
var _ ListingSanitizerService = (*listingSanitizer)(nil)
