// Package auth はTelegram Gatewayによる電話番号検証ログインとセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/cardeal/internal/model"
	"github.com/hitoshi/cardeal/internal/repository"
)

// VerificationProvider は電話番号検証プロバイダーのインターフェース。
type VerificationProvider interface {
	// SendVerificationMessage は検証コードを送信し、request_idを返す。
	SendVerificationMessage(ctx context.Context, phoneNumber string) (string, error)
	// CheckVerificationStatus は検証コードの状態を確認する。
	CheckVerificationStatus(ctx context.Context, requestID, code string) (*VerificationResult, error)
	// VerifySignature はコールバック署名を検証する。
	VerifySignature(signature string, payload []byte) bool
}

// Sanitizer はプロバイダー由来の文字列からHTMLタグを除去するインターフェース。
type Sanitizer interface {
	Sanitize(s string) string
}

// LoginMetrics はログイン結果の計測インターフェース。
type LoginMetrics interface {
	// RecordLogin はログイン試行結果を記録する。outcomeは"success", "invalid_code", "send_failed" 等。
	RecordLogin(outcome string)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	provider    VerificationProvider
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	sanitizer   Sanitizer
	metrics     LoginMetrics
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	provider VerificationProvider,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	sanitizer Sanitizer,
	metrics LoginMetrics,
	config ServiceConfig,
) *Service {
	return &Service{
		provider:    provider,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		sanitizer:   sanitizer,
		metrics:     metrics,
		config:      config,
	}
}

// StartLogin は電話番号に検証コードを送信し、request_idを返す。
// この段階ではユーザーもセッションも作成しない。
func (s *Service) StartLogin(ctx context.Context, phoneNumber string) (string, error) {
	requestID, err := s.provider.SendVerificationMessage(ctx, phoneNumber)
	if err != nil {
		slog.Error("verification send failed", slog.String("error", err.Error()))
		s.metrics.RecordLogin("send_failed")
		return "", model.NewVerificationSendFailedError()
	}

	slog.Info("verification code sent", slog.String("request_id", requestID))
	return requestID, nil
}

// CompleteLogin は検証コードを確認し、成功時にユーザーを解決してセッションを発行する。
// status=code_valid以外（プロバイダー失敗を含む）はすべて認証拒否として扱う。
func (s *Service) CompleteLogin(ctx context.Context, requestID, code string) (*model.User, *model.Session, error) {
	result, err := s.provider.CheckVerificationStatus(ctx, requestID, code)
	if err != nil {
		slog.Error("verification check failed", slog.String("error", err.Error()))
		s.metrics.RecordLogin("invalid_code")
		return nil, nil, model.NewInvalidVerificationCodeError()
	}

	if result.Status != VerificationStatusCodeValid {
		slog.Info("verification code rejected",
			slog.String("request_id", requestID),
			slog.String("status", result.Status),
		)
		s.metrics.RecordLogin("invalid_code")
		return nil, nil, model.NewInvalidVerificationCodeError()
	}

	if result.User == nil || result.User.ID == 0 {
		slog.Error("verification succeeded but user payload is missing",
			slog.String("request_id", requestID),
		)
		s.metrics.RecordLogin("user_data_missing")
		return nil, nil, model.NewTelegramUserDataMissingError()
	}

	user, err := s.resolveUser(ctx, result.User)
	if err != nil {
		s.metrics.RecordLogin("resolve_failed")
		return nil, nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		s.metrics.RecordLogin("session_failed")
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.metrics.RecordLogin("success")
	slog.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("telegram_id", user.TelegramID),
	)

	return user, session, nil
}

// resolveUser はTelegramユーザー情報からアプリユーザーを検索または作成する。
// 名前はfirst_name + " " + last_nameをトリムしたもので、first_name欠落時は"User"を使う。
// 既存ユーザーの場合、初回登録時のname/avatarがそのまま維持される。
func (s *Service) resolveUser(ctx context.Context, tu *TelegramUser) (*model.User, error) {
	firstName := tu.FirstName
	if firstName == "" {
		firstName = "User"
	}
	name := strings.TrimSpace(s.sanitizer.Sanitize(firstName) + " " + s.sanitizer.Sanitize(tu.LastName))

	var avatar *string
	if tu.PhotoURL != "" {
		url := s.sanitizer.Sanitize(tu.PhotoURL)
		avatar = &url
	}

	telegramID := strconv.FormatInt(tu.ID, 10)
	user, err := s.userRepo.FindOrCreateByTelegramID(ctx, telegramID, name, avatar)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
// セッションが無効・期限切れの場合はUnauthenticatedエラーを返す。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, model.NewUnauthenticatedError()
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, model.NewUnauthenticatedError()
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthenticatedError()
	}

	return user, nil
}

// VerifyCallbackSignature はGatewayコールバックの署名を検証する。
func (s *Service) VerifyCallbackSignature(signature string, payload []byte) bool {
	return s.provider.VerifySignature(signature, payload)
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID int64) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// compile-time interface check
var _ VerificationProvider = (*GatewayClient)(nil)
