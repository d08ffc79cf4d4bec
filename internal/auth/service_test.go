package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/cardeal/internal/model"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn         func(ctx context.Context, id int64) (*model.User, error)
	findOrCreateFn     func(ctx context.Context, telegramID, name string, avatar *string) (*model.User, error)
	findOrCreateCalled bool
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindOrCreateByTelegramID(ctx context.Context, telegramID, name string, avatar *string) (*model.User, error) {
	m.findOrCreateCalled = true
	if m.findOrCreateFn != nil {
		return m.findOrCreateFn(ctx, telegramID, name, avatar)
	}
	return &model.User{ID: 1, TelegramID: telegramID, Name: name, Avatar: avatar}, nil
}

type mockSessionRepo struct {
	createFn     func(ctx context.Context, session *model.Session) error
	findByIDFn   func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn func(ctx context.Context, id string) error
	deleteExpFn  func(ctx context.Context) (int64, error)
	createdID    string
	deletedID    string
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	m.createdID = session.ID
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	m.deletedID = id
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	if m.deleteExpFn != nil {
		return m.deleteExpFn(ctx)
	}
	return 0, nil
}

type mockProvider struct {
	sendFn   func(ctx context.Context, phoneNumber string) (string, error)
	checkFn  func(ctx context.Context, requestID, code string) (*VerificationResult, error)
	verifyFn func(signature string, payload []byte) bool
}

func (m *mockProvider) SendVerificationMessage(ctx context.Context, phoneNumber string) (string, error) {
	if m.sendFn != nil {
		return m.sendFn(ctx, phoneNumber)
	}
	return "req-1", nil
}

func (m *mockProvider) CheckVerificationStatus(ctx context.Context, requestID, code string) (*VerificationResult, error) {
	if m.checkFn != nil {
		return m.checkFn(ctx, requestID, code)
	}
	return nil, nil
}

func (m *mockProvider) VerifySignature(signature string, payload []byte) bool {
	if m.verifyFn != nil {
		return m.verifyFn(signature, payload)
	}
	return false
}

// passthroughSanitizer はそのまま返すサニタイザー。
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(s string) string { return s }

// recordingMetrics は記録されたoutcomeを保持する。
type recordingMetrics struct {
	outcomes []string
}

func (m *recordingMetrics) RecordLogin(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

func newTestService(provider VerificationProvider, userRepo *mockUserRepo, sessionRepo *mockSessionRepo) (*Service, *recordingMetrics) {
	metrics := &recordingMetrics{}
	svc := NewService(provider, userRepo, sessionRepo, passthroughSanitizer{}, metrics, ServiceConfig{SessionMaxAge: 3600})
	return svc, metrics
}

// --- StartLogin ---

func TestStartLogin_Success(t *testing.T) {
	provider := &mockProvider{
		sendFn: func(_ context.Context, phoneNumber string) (string, error) {
			if phoneNumber != "+79991234567" {
				t.Errorf("phoneNumber = %q, want %q", phoneNumber, "+79991234567")
			}
			return "req-abc", nil
		},
	}
	svc, metrics := newTestService(provider, &mockUserRepo{}, &mockSessionRepo{})

	requestID, err := svc.StartLogin(context.Background(), "+79991234567")
	if err != nil {
		t.Fatalf("StartLogin returned error: %v", err)
	}
	if requestID != "req-abc" {
		t.Errorf("requestID = %q, want %q", requestID, "req-abc")
	}
	if len(metrics.outcomes) != 0 {
		t.Errorf("success of StartLogin should not record login outcome, got %v", metrics.outcomes)
	}
}

func TestStartLogin_SendFailure(t *testing.T) {
	provider := &mockProvider{
		sendFn: func(_ context.Context, _ string) (string, error) {
			return "", errors.New("gateway down")
		},
	}
	svc, metrics := newTestService(provider, &mockUserRepo{}, &mockSessionRepo{})

	_, err := svc.StartLogin(context.Background(), "+79991234567")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeVerificationSendFailed {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeVerificationSendFailed)
	}
	if len(metrics.outcomes) != 1 || metrics.outcomes[0] != "send_failed" {
		t.Errorf("outcomes = %v, want [send_failed]", metrics.outcomes)
	}
}

// --- CompleteLogin ---

func validResult() *VerificationResult {
	return &VerificationResult{
		RequestID: "req-abc",
		Status:    VerificationStatusCodeValid,
		User: &TelegramUser{
			ID:        123456789,
			FirstName: "Иван",
			LastName:  "Петров",
			PhotoURL:  "https://t.me/i/userpic/ivan.jpg",
		},
	}
}

func TestCompleteLogin_Success(t *testing.T) {
	provider := &mockProvider{
		checkFn: func(_ context.Context, requestID, code string) (*VerificationResult, error) {
			if requestID != "req-abc" || code != "123456" {
				t.Errorf("check called with (%q, %q)", requestID, code)
			}
			return validResult(), nil
		},
	}
	userRepo := &mockUserRepo{
		findOrCreateFn: func(_ context.Context, telegramID, name string, avatar *string) (*model.User, error) {
			if telegramID != "123456789" {
				t.Errorf("telegramID = %q, want %q", telegramID, "123456789")
			}
			if name != "Иван Петров" {
				t.Errorf("name = %q, want %q", name, "Иван Петров")
			}
			if avatar == nil || *avatar != "https://t.me/i/userpic/ivan.jpg" {
				t.Errorf("avatar = %v", avatar)
			}
			return &model.User{ID: 42, TelegramID: telegramID, Name: name, Avatar: avatar}, nil
		},
	}
	sessionRepo := &mockSessionRepo{}
	svc, metrics := newTestService(provider, userRepo, sessionRepo)

	user, session, err := svc.CompleteLogin(context.Background(), "req-abc", "123456")
	if err != nil {
		t.Fatalf("CompleteLogin returned error: %v", err)
	}
	if user.ID != 42 {
		t.Errorf("user.ID = %d, want 42", user.ID)
	}
	if session == nil || len(session.ID) != 64 {
		t.Fatalf("expected 64-hex session ID, got %v", session)
	}
	if session.UserID != 42 {
		t.Errorf("session.UserID = %d, want 42", session.UserID)
	}
	if sessionRepo.createdID != session.ID {
		t.Error("session was not persisted")
	}
	if len(metrics.outcomes) != 1 || metrics.outcomes[0] != "success" {
		t.Errorf("outcomes = %v, want [success]", metrics.outcomes)
	}
}

func TestCompleteLogin_InvalidCode(t *testing.T) {
	for _, status := range []string{"code_invalid", "expired", "code_max_attempts_exceeded"} {
		t.Run(status, func(t *testing.T) {
			provider := &mockProvider{
				checkFn: func(_ context.Context, _, _ string) (*VerificationResult, error) {
					return &VerificationResult{RequestID: "req-abc", Status: status}, nil
				},
			}
			userRepo := &mockUserRepo{}
			svc, metrics := newTestService(provider, userRepo, &mockSessionRepo{})

			_, _, err := svc.CompleteLogin(context.Background(), "req-abc", "000000")
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidVerificationCode {
				t.Fatalf("expected INVALID_VERIFICATION_CODE, got %v", err)
			}
			if userRepo.findOrCreateCalled {
				t.Error("user must not be created on rejected code")
			}
			if len(metrics.outcomes) != 1 || metrics.outcomes[0] != "invalid_code" {
				t.Errorf("outcomes = %v, want [invalid_code]", metrics.outcomes)
			}
		})
	}
}

func TestCompleteLogin_ProviderFailureIsRejection(t *testing.T) {
	provider := &mockProvider{
		checkFn: func(_ context.Context, _, _ string) (*VerificationResult, error) {
			return nil, errors.New("timeout")
		},
	}
	svc, _ := newTestService(provider, &mockUserRepo{}, &mockSessionRepo{})

	_, _, err := svc.CompleteLogin(context.Background(), "req-abc", "123456")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidVerificationCode {
		t.Fatalf("provider failure should map to INVALID_VERIFICATION_CODE, got %v", err)
	}
}

func TestCompleteLogin_MissingUserData(t *testing.T) {
	provider := &mockProvider{
		checkFn: func(_ context.Context, _, _ string) (*VerificationResult, error) {
			return &VerificationResult{RequestID: "req-abc", Status: VerificationStatusCodeValid}, nil
		},
	}
	svc, _ := newTestService(provider, &mockUserRepo{}, &mockSessionRepo{})

	_, _, err := svc.CompleteLogin(context.Background(), "req-abc", "123456")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeTelegramUserDataMissing {
		t.Fatalf("expected TELEGRAM_USER_DATA_MISSING, got %v", err)
	}
}

func TestCompleteLogin_FirstNameDefaultsToUser(t *testing.T) {
	result := validResult()
	result.User.FirstName = ""
	result.User.LastName = ""
	result.User.PhotoURL = ""

	provider := &mockProvider{
		checkFn: func(_ context.Context, _, _ string) (*VerificationResult, error) {
			return result, nil
		},
	}
	userRepo := &mockUserRepo{
		findOrCreateFn: func(_ context.Context, telegramID, name string, avatar *string) (*model.User, error) {
			if name != "User" {
				t.Errorf("name = %q, want %q", name, "User")
			}
			if avatar != nil {
				t.Errorf("avatar = %v, want nil", avatar)
			}
			return &model.User{ID: 1, TelegramID: telegramID, Name: name}, nil
		},
	}
	svc, _ := newTestService(provider, userRepo, &mockSessionRepo{})

	if _, _, err := svc.CompleteLogin(context.Background(), "req-abc", "123456"); err != nil {
		t.Fatalf("CompleteLogin returned error: %v", err)
	}
}

// --- Logout / GetCurrentUser ---

func TestLogout_DeletesSession(t *testing.T) {
	sessionRepo := &mockSessionRepo{}
	svc, _ := newTestService(&mockProvider{}, &mockUserRepo{}, sessionRepo)

	if err := svc.Logout(context.Background(), "sess-1"); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if sessionRepo.deletedID != "sess-1" {
		t.Errorf("deletedID = %q, want %q", sessionRepo.deletedID, "sess-1")
	}
}

func TestLogout_EmptySessionID(t *testing.T) {
	svc, _ := newTestService(&mockProvider{}, &mockUserRepo{}, &mockSessionRepo{})
	if err := svc.Logout(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty session ID")
	}
}

func TestGetCurrentUser_Success(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Session, error) {
			return &model.Session{ID: id, UserID: 7, ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	userRepo := &mockUserRepo{
		findByIDFn: func(_ context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Name: "Иван Петров", TelegramID: "123"}, nil
		},
	}
	svc, _ := newTestService(&mockProvider{}, userRepo, sessionRepo)

	user, err := svc.GetCurrentUser(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("GetCurrentUser returned error: %v", err)
	}
	if user.ID != 7 {
		t.Errorf("user.ID = %d, want 7", user.ID)
	}
}

func TestGetCurrentUser_ExpiredOrMissingSession(t *testing.T) {
	svc, _ := newTestService(&mockProvider{}, &mockUserRepo{}, &mockSessionRepo{})

	_, err := svc.GetCurrentUser(context.Background(), "sess-gone")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUnauthenticated {
		t.Fatalf("expected UNAUTHENTICATED, got %v", err)
	}
}

func TestGetCurrentUser_EmptySessionID(t *testing.T) {
	svc, _ := newTestService(&mockProvider{}, &mockUserRepo{}, &mockSessionRepo{})

	_, err := svc.GetCurrentUser(context.Background(), "")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUnauthenticated {
		t.Fatalf("expected UNAUTHENTICATED, got %v", err)
	}
}
