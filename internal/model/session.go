package model

// SessionEntry は外部ログインフローが書き込んだsessionテーブルの1行を表す。
// keyはベアラートークン相当のため、一覧には含めない。
type SessionEntry struct {
	LoginEmail string `json:"login_email"`
	LoginName  string `json:"login_name"`
	CreatedAt  string `json:"created_at,omitempty"`
}
