package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/cardeal/internal/middleware"
	"github.com/hitoshi/cardeal/internal/model"
)

// PolicyServiceInterface はポリシーハンドラーが必要とするサービスインターフェース。
type PolicyServiceInterface interface {
	// ActivePolicies は公開中のポリシー一覧を返す。
	ActivePolicies(ctx context.Context) ([]*model.Policy, error)
	// UserStatus はユーザーの全アクティブポリシーへの同意状態を返す。
	UserStatus(ctx context.Context, userID int64) ([]*model.PolicyConsent, error)
	// Sign は指定ポリシーへの同意を記録する。
	Sign(ctx context.Context, userID int64, policyIDs []int64) error
	// Unsign は指定ポリシーへの同意を取り消す。
	Unsign(ctx context.Context, userID int64, policyIDs []int64) error
}

// PolicyHandler はポリシー同意管理のHTTPハンドラー。
type PolicyHandler struct {
	service PolicyServiceInterface
}

// NewPolicyHandler はPolicyHandlerを生成する。
func NewPolicyHandler(service PolicyServiceInterface) *PolicyHandler {
	return &PolicyHandler{service: service}
}

// policyResponse は公開ポリシーのAPIレスポンス。
type policyResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// policyConsentResponse はユーザーの同意状態のAPIレスポンス。
type policyConsentResponse struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	URL      string  `json:"url"`
	Signed   bool    `json:"signed"`
	SignedAt *string `json:"signed_at"`
}

// policyIDsRequest は同意・取消リクエストのボディ。
type policyIDsRequest struct {
	Policies []int64 `json:"policies"`
}

// Main は公開中のポリシー一覧を返す。認証不要。
// GET /policies/main
func (h *PolicyHandler) Main(w http.ResponseWriter, r *http.Request) {
	policies, err := h.service.ActivePolicies(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]policyResponse, len(policies))
	for i, p := range policies {
		results[i] = policyResponse{ID: p.ID, Name: p.Name, URL: p.URL}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Privacy policies",
		"data":    results,
	})
}

// User は現在のユーザーから見た全アクティブポリシーの同意状態を返す。
// GET /policies/user
func (h *PolicyHandler) User(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	consents, err := h.service.UserStatus(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]policyConsentResponse, len(consents))
	for i, c := range consents {
		results[i] = policyConsentResponse{
			ID:       c.PolicyID,
			Name:     c.Name,
			URL:      c.URL,
			Signed:   c.Signed,
			SignedAt: formatDate(c.SignedAt),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Privacy policies of user",
		"data":    results,
	})
}

// Sign は指定ポリシーへの同意を記録する。
// POST /policies/sign
func (h *PolicyHandler) Sign(w http.ResponseWriter, r *http.Request) {
	h.updateConsent(w, r, h.service.Sign, "Policies signed successfully")
}

// Unsign は指定ポリシーへの同意を取り消す。
// POST /policies/unsign
func (h *PolicyHandler) Unsign(w http.ResponseWriter, r *http.Request) {
	h.updateConsent(w, r, h.service.Unsign, "Policies unsigned successfully")
}

// updateConsent はSign/Unsign共通のリクエスト処理。
func (h *PolicyHandler) updateConsent(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID int64, policyIDs []int64) error, message string) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req policyIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidJSONError(w)
		return
	}

	if len(req.Policies) == 0 {
		writeValidationErrors(w, map[string][]string{
			"policies": {"The policies field is required"},
		})
		return
	}

	if err := op(r.Context(), userID, req.Policies); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
	})
}
