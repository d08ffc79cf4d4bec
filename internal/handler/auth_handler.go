package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/cardeal/internal/model"
)

const sessionCookieName = "session_id"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// StartLogin は電話番号に検証コードを送信し、request_idを返す。
	StartLogin(ctx context.Context, phoneNumber string) (string, error)
	// CompleteLogin は検証コードを確認し、ユーザーとセッションを返す。
	CompleteLogin(ctx context.Context, requestID, code string) (*model.User, *model.Session, error)
	// Logout はセッションを破棄する。
	Logout(ctx context.Context, sessionID string) error
	// GetCurrentUser はセッションから現在のユーザーを返す。
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
	// VerifyCallbackSignature はGatewayコールバックの署名を検証する。
	VerifyCallbackSignature(signature string, payload []byte) bool
}

// EntitlementProvider は/currentのsubフィールドに必要なインターフェース。
type EntitlementProvider interface {
	CurrentEntitlement(ctx context.Context, userID int64) (*model.Entitlement, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler は電話番号検証ログイン関連のHTTPハンドラー。
type AuthHandler struct {
	service     AuthServiceInterface
	entitlement EntitlementProvider
	config      AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, entitlement EntitlementProvider, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:     service,
		entitlement: entitlement,
		config:      config,
	}
}

// loginRequest はログインリクエストのボディ。
// request_idが無い場合はステップ1（コード送信）、ある場合はステップ2（コード確認）。
type loginRequest struct {
	PhoneNumber string `json:"phone_number"`
	RequestID   string `json:"request_id"`
	Code        string `json:"code"`
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID        int64                `json:"id"`
	Name      string               `json:"name"`
	Avatar    *string              `json:"avatar"`
	CreatedAt time.Time            `json:"created_at"`
	Sub       *entitlementResponse `json:"sub"`
}

// entitlementResponse は有効なサブスクリプション購入のAPIレスポンス。
type entitlementResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Duration  int    `json:"duration"`
	ValidThru string `json:"valid_thru"`
}

// Login は二段階の電話番号検証ログインを処理する。
// POST /login
//
// ステップ1: {phone_number} → 検証コードを送信しrequest_idを返す。
// ステップ2: {phone_number, request_id, code} → コードを確認しセッションを発行する。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidJSONError(w)
		return
	}

	if fieldErrors := validateLoginRequest(&req); len(fieldErrors) > 0 {
		writeValidationErrors(w, fieldErrors)
		return
	}

	// ステップ2: コード確認。request_idがあればcodeが空でもステータス照会に進み、
	// code_valid以外はすべて401になる。
	if req.RequestID != "" {
		user, session, err := h.service.CompleteLogin(r.Context(), req.RequestID, req.Code)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		h.setSessionCookie(w, session.ID)

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"user": userResponse{
				ID:        user.ID,
				Name:      user.Name,
				Avatar:    user.Avatar,
				CreatedAt: user.CreatedAt,
			},
		})
		return
	}

	// ステップ1: コード送信
	requestID, err := h.service.StartLogin(r.Context(), req.PhoneNumber)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"request_id": requestID,
		"message":    "Verification code sent",
	})
}

// Logout はセッションを破棄する。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	h.clearSessionCookie(w)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out successfully",
	})
}

// Current は現在のログインユーザー情報をサブスクリプション状態付きで返す。
// GET /current
func (h *AuthHandler) Current(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), cookie.Value)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := userResponse{
		ID:        user.ID,
		Name:      user.Name,
		Avatar:    user.Avatar,
		CreatedAt: user.CreatedAt,
	}

	entitlement, err := h.entitlement.CurrentEntitlement(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if entitlement != nil {
		resp.Sub = &entitlementResponse{
			ID:        entitlement.Purchase.ID,
			Name:      entitlement.SubscriptionName,
			Duration:  entitlement.DurationDays,
			ValidThru: entitlement.Purchase.ValidThru.Format(dateLayout),
		}
	}

	// 有効な購入がない場合、user.subはnullとして出る
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    resp,
	})
}

// Webhook はGatewayからの配信レポートコールバックを処理する。
// POST /telegram/callback
// X-Request-Signatureヘッダーの署名検証に失敗した場合は401を返す。
func (h *AuthHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeInvalidJSONError(w)
		return
	}

	signature := r.Header.Get("X-Request-Signature")
	if signature == "" || !h.service.VerifyCallbackSignature(signature, payload) {
		slog.Warn("webhook signature verification failed")
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	slog.Info("gateway delivery report received", slog.Int("payload_bytes", len(payload)))

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// validateLoginRequest はログインリクエストの入力形式を検証する。
// 形式エラーは認証拒否とは別カテゴリとして422で返す。
func validateLoginRequest(req *loginRequest) map[string][]string {
	fieldErrors := make(map[string][]string)

	if req.PhoneNumber == "" {
		fieldErrors["phone_number"] = append(fieldErrors["phone_number"], "The phone_number field is required")
	}
	if req.Code != "" {
		if len(req.Code) < 4 || len(req.Code) > 8 {
			fieldErrors["code"] = append(fieldErrors["code"], "The code must be between 4 and 8 characters")
		}
		if req.RequestID == "" {
			fieldErrors["request_id"] = append(fieldErrors["request_id"], "The request_id field is required when code is present")
		}
	}

	return fieldErrors
}

// setSessionCookie はHTTP OnlyのセッションCookieを設定する。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieを削除する。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
