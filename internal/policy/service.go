// Package policy はポリシー公開と同意トラッキングを提供する。
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/cardeal/internal/model"
	"github.com/hitoshi/cardeal/internal/repository"
)

// Service はポリシー同意に関するビジネスロジックを提供する。
type Service struct {
	policyRepo repository.PolicyRepository

	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(policyRepo repository.PolicyRepository) *Service {
	return &Service{
		policyRepo: policyRepo,
		now:        time.Now,
	}
}

// ActivePolicies は公開中のポリシー一覧を返す。
func (s *Service) ActivePolicies(ctx context.Context) ([]*model.Policy, error) {
	policies, err := s.policyRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active policies: %w", err)
	}
	return policies, nil
}

// UserStatus はユーザーから見た全アクティブポリシーの同意状態を返す。
// signed = 同意行が存在し、かつsigned_atが設定されている。
func (s *Service) UserStatus(ctx context.Context, userID int64) ([]*model.PolicyConsent, error) {
	policies, err := s.policyRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active policies: %w", err)
	}

	signed, err := s.policyRepo.SignedPolicyIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signed policies: %w", err)
	}

	consents := make([]*model.PolicyConsent, 0, len(policies))
	for _, p := range policies {
		consent := &model.PolicyConsent{
			PolicyID: p.ID,
			Name:     p.Name,
			URL:      p.URL,
		}
		if signedAt, ok := signed[p.ID]; ok {
			consent.Signed = true
			consent.SignedAt = &signedAt
		}
		consents = append(consents, consent)
	}

	return consents, nil
}

// Sign は指定ポリシーへの同意を記録する。冪等で、再署名はsigned_atを更新する。
// 存在しない、または非アクティブなポリシーIDが含まれる場合はPOLICY_NOT_FOUNDを返す。
func (s *Service) Sign(ctx context.Context, userID int64, policyIDs []int64) error {
	if err := s.validatePolicyIDs(ctx, policyIDs); err != nil {
		return err
	}

	if err := s.policyRepo.Sign(ctx, userID, policyIDs, s.now()); err != nil {
		return fmt.Errorf("failed to sign policies: %w", err)
	}

	slog.Info("policies signed",
		slog.Int64("user_id", userID),
		slog.Int("count", len(policyIDs)),
	)
	return nil
}

// Unsign は指定ポリシーへの同意を取り消す。
// 同意行が存在しないポリシーは変更せずに成功扱いとする（取消済み状態が既に成立しているため）。
// 存在しない、または非アクティブなポリシーIDが含まれる場合はPOLICY_NOT_FOUNDを返す。
func (s *Service) Unsign(ctx context.Context, userID int64, policyIDs []int64) error {
	if err := s.validatePolicyIDs(ctx, policyIDs); err != nil {
		return err
	}

	if err := s.policyRepo.Unsign(ctx, userID, policyIDs); err != nil {
		return fmt.Errorf("failed to unsign policies: %w", err)
	}

	slog.Info("policies unsigned",
		slog.Int64("user_id", userID),
		slog.Int("count", len(policyIDs)),
	)
	return nil
}

// validatePolicyIDs は全IDがアクティブなポリシーを指していることを確認する。
func (s *Service) validatePolicyIDs(ctx context.Context, policyIDs []int64) error {
	if len(policyIDs) == 0 {
		return model.NewPolicyNotFoundError()
	}

	count, err := s.policyRepo.CountActiveByIDs(ctx, policyIDs)
	if err != nil {
		return fmt.Errorf("failed to validate policy ids: %w", err)
	}
	if count != len(policyIDs) {
		return model.NewPolicyNotFoundError()
	}

	return nil
}
