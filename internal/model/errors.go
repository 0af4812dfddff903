package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, rsvp, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	// ErrCodeStoreFailure はストア障害時の固定コード。旧実装のDB002を引き継ぐ。
	ErrCodeStoreFailure   = "DB002"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeNotAdmin       = "NOT_ADMIN"
	ErrCodeOutsideGroup   = "OUTSIDE_GROUP"
	ErrCodePersonNotFound = "PERSON_NOT_FOUND"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
)

// NewStoreFailureError はストア障害エラーを生成する。
// 詳細はログのみに記録し、利用者には固定コードだけを返す。
func NewStoreFailureError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreFailure,
		Message:  "Error DB002: Internal Server Error",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewForbiddenError は本人以外の招待客を更新しようとした場合のエラーを生成する。
func NewForbiddenError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  fmt.Sprintf("この招待客を更新する権限がありません: %d", id),
		Category: "auth",
		Action:   "ご自身の出欠のみ更新できます。",
	}
}

// NewOutsideGroupError は世帯外の招待客を一括更新しようとした場合のエラーを生成する。
func NewOutsideGroupError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeOutsideGroup,
		Message:  fmt.Sprintf("世帯に所属していない招待客が含まれています: %d", id),
		Category: "auth",
		Action:   "同じ招待状の方のみ更新できます。",
	}
}

// NewNotAdminError は管理者以外が管理者用エンドポイントにアクセスした場合のエラーを生成する。
func NewNotAdminError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAdmin,
		Message:  "管理者のみアクセスできます。",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewPersonNotFoundError はログイン中の利用者を招待客リストから特定できない場合のエラーを生成する。
func NewPersonNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodePersonNotFound,
		Message:  "招待客リストからお名前を見つけられませんでした。",
		Category: "rsvp",
		Action:   "招待状に記載のお名前でログインしているか確認してください。",
	}
}

// NewInvalidRequestError はリクエストボディが不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}
