// Package model はドメインモデルを定義する。
package model

// Invitee は招待客リスト（peopleテーブル）の1人を表す。
// この系ではレコードを削除しない。更新は本人の出欠更新と世帯単位の一括更新のみ。
type Invitee struct {
	ID           int64  `json:"id"`
	ContactGroup *int64 `json:"contact_group"`
	First        string `json:"first"`
	Middle       string `json:"middle"`
	Last         string `json:"last"`
	FullName     string `json:"full_name"`

	RSVPCompleted bool `json:"rsvp_completed"`
	RSVPReceived  bool `json:"rsvp_received"`
	InPerson      bool `json:"in_person"`
	StreamOnly    bool `json:"stream_only"`

	// SocialEmail は一度紐付くと本人特定の高速パスのキーになる。
	// 別のメールアドレスで上書きしてはならない。
	SocialEmail string `json:"social_email,omitempty"`
}

// BelongsTo は招待客が指定の世帯に所属しているかを返す。
func (i *Invitee) BelongsTo(householdID int64) bool {
	return i.ContactGroup != nil && *i.ContactGroup == householdID
}

// InviteeWithHousehold は管理者向け一覧で使う、世帯情報をLEFT JOINした招待客。
type InviteeWithHousehold struct {
	Invitee
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Address       string `json:"address"`
}

// GroupUpdate は世帯一括更新リクエストの1要素。
type GroupUpdate struct {
	ID       int64 `json:"id"`
	InPerson bool  `json:"in_person"`
}
