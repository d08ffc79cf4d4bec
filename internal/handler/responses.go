// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/cardeal/internal/model"
)

// dateLayout はAPIレスポンスの日付フィールドのフォーマット（日.月.年）。
const dateLayout = "02.01.2006"

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Success  bool   `json:"success"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

// validationErrorResponse はフィールド単位のバリデーションエラーレスポンス。
type validationErrorResponse struct {
	Success bool                `json:"success"`
	Errors  map[string][]string `json:"errors"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Success:  false,
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
	})
}

// writeValidationErrors はフィールドエラー付きの422レスポンスを書き込む。
func writeValidationErrors(w http.ResponseWriter, fieldErrors map[string][]string) {
	writeJSON(w, http.StatusUnprocessableEntity, validationErrorResponse{
		Success: false,
		Errors:  fieldErrors,
	})
}

// writeInvalidJSONError はリクエストボディの解析失敗レスポンスを書き込む。
func writeInvalidJSONError(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "Failed to parse request body",
		Category: "validation",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "Internal server error",
		Category: "system",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
// 認証拒否（コード不正）とバリデーションエラーは、呼び出し側の対処が異なるため
// 別のステータスで区別する。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthenticated, model.ErrCodeInvalidVerificationCode:
		return http.StatusUnauthorized
	case model.ErrCodeVerificationSendFailed, model.ErrCodeTelegramUserDataMissing:
		return http.StatusInternalServerError
	case model.ErrCodePolicyNotFound, model.ErrCodeRecognitionFailed:
		return http.StatusUnprocessableEntity
	case model.ErrCodeSSRFBlocked:
		return http.StatusForbidden
	case model.ErrCodeImageFetchFailed:
		return http.StatusBadGateway
	case model.ErrCodePersonNotFound, model.ErrCodeCarNotFound,
		model.ErrCodeContractNotFound, model.ErrCodePassportNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// formatDate は日付を d.m.Y 形式の文字列ポインタに変換する。nilはnilのまま返す。
func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

// parseDateField は d.m.Y または Y-m-d 形式の日付文字列を解釈する。
func parseDateField(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
