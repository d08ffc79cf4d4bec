package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/cardeal/internal/middleware"
	"github.com/hitoshi/cardeal/internal/model"
)

type mockRouterSessionFinder struct {
	findFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockRouterSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findFn != nil {
		return m.findFn(ctx, id)
	}
	return nil, nil
}

// newTestRouter は全依存をモックで埋めたルーターを構築する。
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(limiter.Stop)

	finder := &mockRouterSessionFinder{
		findFn: func(_ context.Context, id string) (*model.Session, error) {
			if id == "valid-session" {
				return &model.Session{ID: id, UserID: 42, ExpiresAt: time.Now().Add(time.Hour)}, nil
			}
			return nil, nil
		},
	}

	authSvc := &mockAuthService{
		startLoginFn: func(_ context.Context, _ string) (string, error) {
			return "req_abc", nil
		},
		getCurrentUserFn: func(_ context.Context, sessionID string) (*model.User, error) {
			if sessionID == "valid-session" {
				return &model.User{ID: 42, Name: "Иван Петров"}, nil
			}
			return nil, model.NewUnauthenticatedError()
		},
	}

	policySvc := &mockPolicyService{
		activeFn: func(_ context.Context) ([]*model.Policy, error) {
			return []*model.Policy{{ID: 1, Name: "Соглашение", URL: "https://example.com/terms"}}, nil
		},
	}

	contractSvc := &mockHandlerContractService{
		getFn: func(_ context.Context, id int64) (*model.Contract, error) {
			return sampleHandlerContract(id), nil
		},
	}

	return NewRouter(&RouterDeps{
		Logger:              slog.New(slog.NewJSONHandler(io.Discard, nil)),
		SessionFinder:       finder,
		CORSAllowedOrigin:   "https://admin.example.com",
		RateLimiter:         limiter,
		AuthService:         authSvc,
		AuthConfig:          AuthHandlerConfig{SessionMaxAge: 86400},
		SubscriptionService: &mockSubscriptionService{},
		Entitlement:         &mockEntitlementProvider{},
		PolicyService:       policySvc,
		OCRService:          &mockOCRService{},
		PersonService:       &mockHandlerPersonService{},
		CarService:          &mockHandlerCarService{},
		ContractService:     contractSvc,
	})
}

func TestRouter_PublicRoutes(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/health"},
		{http.MethodGet, "/policies/main"},
		{http.MethodGet, "/v1/subs/available"},
		{http.MethodGet, "/csrf-token"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want 200: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestRouter_Login_NoSessionRequired(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/login",
		jsonBody(t, map[string]string{"phone_number": "+79991234567"}))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.1:50000"
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["request_id"] != "req_abc" {
		t.Errorf("request_id = %v", resp["request_id"])
	}
}

func TestRouter_ProtectedRoutes_RequireSession(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/current"},
		{http.MethodGet, "/policies/user"},
		{http.MethodGet, "/v1/contracts"},
		{http.MethodGet, "/v1/passport/1"},
		{http.MethodGet, "/v1/car/1"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestRouter_ValidSession_AllowsAccess(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/current", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestRouter_UnsafeMethodWithoutCSRFToken_Returns403(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/policies/sign",
		jsonBody(t, map[string]any{"policies": []int64{1}}))
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403: %s", w.Code, w.Body.String())
	}
}

func TestRouter_UnsafeMethodWithCSRFToken_Passes(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/policies/sign",
		jsonBody(t, map[string]any{"policies": []int64{1}}))
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "tok-123"})
	req.Header.Set("X-CSRF-Token", "tok-123")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestRouter_ContractByID_WithSession(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/contracts/7", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Contract contractResponse `json:"contract"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Contract.ID != 7 {
		t.Errorf("contract id = %d, want 7", resp.Contract.ID)
	}
}

func TestRouter_SecurityHeadersApplied(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://admin.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestRouter_WebhookRoute_SignatureRequired(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/telegram/callback", bytesReader(`{}`))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
