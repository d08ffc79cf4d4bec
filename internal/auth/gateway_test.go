package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *GatewayClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewGatewayClient(GatewayClientConfig{
		Token:   "test-token",
		BaseURL: server.URL,
	})
}

func TestSendVerificationMessage_Success(t *testing.T) {
	client := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sendVerificationMessage" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("Authorization = %q", auth)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if body["phone_number"] != "+79991234567" {
			t.Errorf("phone_number = %v", body["phone_number"])
		}
		if body["code_length"] != float64(6) {
			t.Errorf("code_length = %v, want 6", body["code_length"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"request_id": "req-123"},
		})
	})

	requestID, err := client.SendVerificationMessage(context.Background(), "+79991234567")
	if err != nil {
		t.Fatalf("SendVerificationMessage returned error: %v", err)
	}
	if requestID != "req-123" {
		t.Errorf("requestID = %q, want %q", requestID, "req-123")
	}
}

func TestSendVerificationMessage_GatewayError(t *testing.T) {
	client := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok":    false,
			"error": "PHONE_NUMBER_INVALID",
		})
	})

	_, err := client.SendVerificationMessage(context.Background(), "bad")
	if err == nil {
		t.Fatal("expected error for ok:false response")
	}
}

func TestSendVerificationMessage_MissingRequestID(t *testing.T) {
	client := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{},
		})
	})

	_, err := client.SendVerificationMessage(context.Background(), "+79991234567")
	if err == nil {
		t.Fatal("expected error for missing request_id")
	}
}

func TestCheckVerificationStatus_CodeValid(t *testing.T) {
	client := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkVerificationStatus" {
			t.Errorf("path = %q", r.URL.Path)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if body["request_id"] != "req-123" {
			t.Errorf("request_id = %v", body["request_id"])
		}
		if body["code"] != "123456" {
			t.Errorf("code = %v", body["code"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": map[string]any{
				"request_id": "req-123",
				"status":     "code_valid",
				"user": map[string]any{
					"id":         123456789,
					"first_name": "Иван",
					"last_name":  "Петров",
					"photo_url":  "https://t.me/i/userpic/ivan.jpg",
				},
			},
		})
	})

	result, err := client.CheckVerificationStatus(context.Background(), "req-123", "123456")
	if err != nil {
		t.Fatalf("CheckVerificationStatus returned error: %v", err)
	}
	if result.Status != VerificationStatusCodeValid {
		t.Errorf("status = %q, want %q", result.Status, VerificationStatusCodeValid)
	}
	if result.User == nil || result.User.ID != 123456789 {
		t.Fatalf("user = %+v", result.User)
	}
	if result.User.FirstName != "Иван" {
		t.Errorf("first_name = %q", result.User.FirstName)
	}
}

func TestCheckVerificationStatus_OmitsEmptyCode(t *testing.T) {
	client := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if _, ok := body["code"]; ok {
			t.Error("code should be omitted when empty")
		}

		json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"request_id": "req-123", "status": "sent"},
		})
	})

	result, err := client.CheckVerificationStatus(context.Background(), "req-123", "")
	if err != nil {
		t.Fatalf("CheckVerificationStatus returned error: %v", err)
	}
	if result.Status != "sent" {
		t.Errorf("status = %q, want %q", result.Status, "sent")
	}
}

func TestVerifySignature(t *testing.T) {
	client := NewGatewayClient(GatewayClientConfig{Token: "test-token"})
	payload := []byte(`{"request_id":"req-123","delivery_status":{"status":"delivered"}}`)

	tokenHash := sha256.Sum256([]byte("test-token"))
	mac := hmac.New(sha256.New, tokenHash[:])
	mac.Write(payload)
	valid := hex.EncodeToString(mac.Sum(nil))

	if !client.VerifySignature(valid, payload) {
		t.Error("valid signature rejected")
	}
	if client.VerifySignature(valid, []byte("tampered")) {
		t.Error("signature accepted for tampered payload")
	}
	if client.VerifySignature("deadbeef", payload) {
		t.Error("bogus signature accepted")
	}
}

type recordingProviderMetrics struct {
	provider string
	calls    int
	isError  bool
}

func (m *recordingProviderMetrics) RecordProviderCall(provider string, _ time.Duration, isError bool) {
	m.provider = provider
	m.calls++
	m.isError = isError
}

func TestGateway_RecordsProviderMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ok":true,"result":{"request_id":"req-1"}}`))
	}))
	t.Cleanup(server.Close)

	metrics := &recordingProviderMetrics{}
	client := NewGatewayClient(GatewayClientConfig{
		Token:   "test-token",
		BaseURL: server.URL,
		Metrics: metrics,
	})

	if _, err := client.SendVerificationMessage(context.Background(), "+79991234567"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if metrics.calls != 1 {
		t.Errorf("provider calls = %d, want 1", metrics.calls)
	}
	if metrics.provider != "telegram_gateway" {
		t.Errorf("provider = %q, want telegram_gateway", metrics.provider)
	}
	if metrics.isError {
		t.Error("successful call should not be recorded as error")
	}
}
