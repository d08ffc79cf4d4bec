// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// サービス層がエラーコード付きで返し、ハンドラー層でHTTPステータスに変換する。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ（APIレスポンスにそのまま出す）
	Category string // カテゴリ: auth, validation, provider, system
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated         = "UNAUTHENTICATED"
	ErrCodeInvalidVerificationCode = "INVALID_VERIFICATION_CODE"
	ErrCodeVerificationSendFailed  = "VERIFICATION_SEND_FAILED"
	ErrCodeTelegramUserDataMissing = "TELEGRAM_USER_DATA_MISSING"
	ErrCodePolicyNotFound          = "POLICY_NOT_FOUND"
	ErrCodeContractNotFound        = "CONTRACT_NOT_FOUND"
	ErrCodePersonNotFound          = "PERSON_NOT_FOUND"
	ErrCodePassportNotFound        = "PASSPORT_NOT_FOUND"
	ErrCodeCarNotFound             = "CAR_NOT_FOUND"
	ErrCodeRecognitionFailed       = "RECOGNITION_FAILED"
	ErrCodeSSRFBlocked             = "SSRF_BLOCKED"
	ErrCodeImageFetchFailed        = "IMAGE_FETCH_FAILED"
)

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "Unauthenticated",
		Category: "auth",
	}
}

// NewInvalidVerificationCodeError は認証コード検証失敗エラーを生成する。
// プロバイダーのcode_valid以外の応答および通信失敗をすべてこのエラーに畳み込む。
func NewInvalidVerificationCodeError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidVerificationCode,
		Message:  "Invalid verification code",
		Category: "auth",
	}
}

// NewVerificationSendFailedError は認証コード送信失敗エラーを生成する。
func NewVerificationSendFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeVerificationSendFailed,
		Message:  "Failed to send verification code",
		Category: "provider",
	}
}

// NewTelegramUserDataMissingError はプロバイダー応答にユーザー情報が欠落している場合のエラーを生成する。
func NewTelegramUserDataMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeTelegramUserDataMissing,
		Message:  "Failed to get Telegram user data",
		Category: "provider",
	}
}

// NewPolicyNotFoundError は存在しないポリシーIDを指定した場合のエラーを生成する。
func NewPolicyNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodePolicyNotFound,
		Message:  "One or more policies do not exist",
		Category: "validation",
	}
}

// NewContractNotFoundError は契約が見つからない場合のエラーを生成する。
func NewContractNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeContractNotFound,
		Message:  fmt.Sprintf("Contract not found: %d", id),
		Category: "validation",
	}
}

// NewPersonNotFoundError は個人が見つからない場合のエラーを生成する。
func NewPersonNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodePersonNotFound,
		Message:  fmt.Sprintf("Person not found: %d", id),
		Category: "validation",
	}
}

// NewPassportNotFoundError はパスポートが見つからない場合のエラーを生成する。
func NewPassportNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodePassportNotFound,
		Message:  fmt.Sprintf("Passport not found: %d", id),
		Category: "validation",
	}
}

// NewCarNotFoundError は車両が見つからない場合のエラーを生成する。
func NewCarNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeCarNotFound,
		Message:  fmt.Sprintf("Car not found: %d", id),
		Category: "validation",
	}
}

// NewRecognitionFailedError はOCR認識失敗エラーを生成する。
func NewRecognitionFailedError(docType string) *APIError {
	return &APIError{
		Code:     ErrCodeRecognitionFailed,
		Message:  fmt.Sprintf("Failed to recognize %s", docType),
		Category: "provider",
	}
}

// NewSSRFBlockedError は安全でないURLへのアクセスをブロックした場合のエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "Access to the specified URL is blocked by security policy",
		Category: "validation",
	}
}

// NewImageFetchFailedError は画像URLの取得失敗エラーを生成する。
func NewImageFetchFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeImageFetchFailed,
		Message:  "Failed to fetch image from URL",
		Category: "provider",
	}
}
