// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, site, metric, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeSiteNotFound         = "SITE_NOT_FOUND"
	ErrCodeUserSiteNotFound     = "USER_SITE_NOT_FOUND"
	ErrCodeDuplicateUserSite    = "DUPLICATE_USER_SITE"
	ErrCodeDuplicateSiteURL     = "DUPLICATE_SITE_URL"
	ErrCodeMetricNotFound       = "METRIC_NOT_FOUND"
	ErrCodeInvalidInclude       = "INVALID_INCLUDE"
	ErrCodeInvalidSitePayload   = "INVALID_SITE_PAYLOAD"
	ErrCodeInvalidMetricPayload = "INVALID_METRIC_PAYLOAD"
	ErrCodeInvalidUpdateField   = "INVALID_UPDATE_FIELD"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
)

// NewSiteNotFoundError はサイト未検出エラーを生成する。
func NewSiteNotFoundError(siteID string) *APIError {
	return &APIError{
		Code:     ErrCodeSiteNotFound,
		Message:  fmt.Sprintf("指定されたサイトが見つかりません: %s", siteID),
		Category: "site",
		Action:   "サイトIDを確認してください。",
	}
}

// NewUserSiteNotFoundError はユーザーとサイトのトラッキング関係が
// 存在しない場合のエラーを生成する。
func NewUserSiteNotFoundError(siteID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserSiteNotFound,
		Message:  fmt.Sprintf("指定されたサイトをトラッキングしていません: %s", siteID),
		Category: "site",
		Action:   "トラッキング中のサイト一覧を確認してください。",
	}
}

// NewDuplicateUserSiteError は既にトラッキング中のサイトを再度登録
// しようとした場合のエラーを生成する。
func NewDuplicateUserSiteError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUserSite,
		Message:  "このサイトは既にトラッキングしています。",
		Category: "site",
		Action:   "トラッキング中のサイト一覧から該当サイトを確認してください。",
	}
}

// NewDuplicateSiteURLError は既存サイトと同一のURLへ更新しようとした
// 場合のエラーを生成する。サイトURLはグローバルに一意である。
func NewDuplicateSiteURLError(url string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateSiteURL,
		Message:  fmt.Sprintf("このURLのサイトは既に存在します: %s", url),
		Category: "site",
		Action:   "別のURLを指定するか、既存のサイトを利用してください。",
	}
}

// NewMetricNotFoundError はメトリクス未検出エラーを生成する。
func NewMetricNotFoundError(metricID string) *APIError {
	return &APIError{
		Code:     ErrCodeMetricNotFound,
		Message:  fmt.Sprintf("指定されたメトリクスが見つかりません: %s", metricID),
		Category: "metric",
		Action:   "メトリクスIDを確認してください。",
	}
}

// NewInvalidIncludeError はサポート外のincludeキーが指定された場合の
// エラーを生成する。
func NewInvalidIncludeError(key string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInclude,
		Message:  fmt.Sprintf("サポートされていないincludeキーです: %s", key),
		Category: "validation",
		Action:   "includeには metrics のみを指定できます。",
	}
}

// NewInvalidSitePayloadError はsiteペイロードが欠落・不正な場合の
// エラーを生成する。
func NewInvalidSitePayloadError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSitePayload,
		Message:  fmt.Sprintf("siteパラメータが不正です: %s", reason),
		Category: "validation",
		Action:   "site オブジェクトに必要なフィールドを含めてください。",
	}
}

// NewInvalidMetricPayloadError はmetricペイロードが欠落・不正な場合の
// エラーを生成する。
func NewInvalidMetricPayloadError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMetricPayload,
		Message:  fmt.Sprintf("metricパラメータが不正です: %s", reason),
		Category: "validation",
		Action:   "metric オブジェクトに必要なフィールドを含めてください。",
	}
}

// NewInvalidUpdateFieldError は許可されていない更新フィールドが
// 指定された場合のエラーを生成する。
func NewInvalidUpdateFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUpdateField,
		Message:  fmt.Sprintf("更新できないフィールドです: %s", field),
		Category: "validation",
		Action:   "許可されたフィールドのみを指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
