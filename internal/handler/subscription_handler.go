package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/cardeal/internal/model"
)

// SubscriptionServiceInterface はサブスクリプションハンドラーが必要とするサービスインターフェース。
type SubscriptionServiceInterface interface {
	// Available は購入可能なサブスクリプション一覧を返す。
	Available(ctx context.Context) ([]*model.Subscription, error)
}

// SubscriptionHandler はサブスクリプション照会のHTTPハンドラー。
type SubscriptionHandler struct {
	service SubscriptionServiceInterface
}

// NewSubscriptionHandler はSubscriptionHandlerを生成する。
func NewSubscriptionHandler(service SubscriptionServiceInterface) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

// subscriptionResponse は販売中サブスクリプションのAPIレスポンス。
type subscriptionResponse struct {
	ID        int64              `json:"id"`
	Name      string             `json:"name"`
	Durations []durationResponse `json:"durations"`
}

// durationResponse は期間・価格バリエーションのAPIレスポンス。
type durationResponse struct {
	ID    int64  `json:"id"`
	Days  int    `json:"days"`
	Price string `json:"price"`
}

// Available は購入可能なサブスクリプション一覧を返す。認証不要。
// GET /v1/subs/available
func (h *SubscriptionHandler) Available(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.Available(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]subscriptionResponse, len(subs))
	for i, s := range subs {
		durations := make([]durationResponse, len(s.Durations))
		for j, d := range s.Durations {
			durations[j] = durationResponse{ID: d.ID, Days: d.Days, Price: d.Price}
		}
		results[i] = subscriptionResponse{ID: s.ID, Name: s.Name, Durations: durations}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"subscriptions": results,
	})
}
