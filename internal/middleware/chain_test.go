package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/cardeal/internal/model"
)

// TestMiddlewareChain_SessionThenRateLimit は
// Session→RateLimitの順で連結したミドルウェアが正しく動作することを検証する。
func TestMiddlewareChain_SessionThenRateLimit(t *testing.T) {
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:        "valid-session",
				UserID:    900,
				ExpiresAt: time.Now().Add(1 * time.Hour),
			}, nil
		},
	}

	rl := NewRateLimiter(DefaultRateLimiterConfig())
	defer rl.Stop()

	sessionMW := NewSessionMiddleware(repo)
	rateMW := rl.GeneralMiddleware()

	var capturedUserID int64
	handler := sessionMW(rateMW(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedUserID, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/v1/contract", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if capturedUserID != 900 {
		t.Errorf("userID = %d, want 900", capturedUserID)
	}
}

// TestMiddlewareChain_RecoveryCatchesHandlerPanic は
// Recoveryミドルウェアが下流のpanicを500に変換することを検証する。
func TestMiddlewareChain_RecoveryCatchesHandlerPanic(t *testing.T) {
	recoveryMW := NewRecoveryMiddleware()
	headersMW := NewSecurityHeadersMiddleware()

	handler := recoveryMW(headersMW(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}
