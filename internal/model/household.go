package model

// Household は招待状の送付単位（contact_groupsテーブル）を表す。
// この系からは読み取り専用。
type Household struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Address       string `json:"address,omitempty"`
}
