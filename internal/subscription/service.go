// Package subscription はサブスクリプションと購入権の照会を提供する。
package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/cardeal/internal/model"
	"github.com/hitoshi/cardeal/internal/repository"
)

// Service はサブスクリプションに関するビジネスロジックを提供する。
type Service struct {
	subRepo repository.SubscriptionRepository

	// now はテストで時刻を固定するためのフック。
	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(subRepo repository.SubscriptionRepository) *Service {
	return &Service{
		subRepo: subRepo,
		now:     time.Now,
	}
}

// Available は購入可能なサブスクリプション一覧を返す。
func (s *Service) Available(ctx context.Context) ([]*model.Subscription, error) {
	subs, err := s.subRepo.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list available subscriptions: %w", err)
	}
	return subs, nil
}

// CurrentEntitlement はユーザーの有効な購入権を返す。
// valid_thruが最も遅い購入を取り、SubscriptionPurchase.IsActiveで有効性を判定する。
// 境界ちょうど（valid_thru == now）は無効扱い。有効な購入がない場合はnil。
func (s *Service) CurrentEntitlement(ctx context.Context, userID int64) (*model.Entitlement, error) {
	entitlement, err := s.subRepo.FindLatestEntitlement(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find latest entitlement: %w", err)
	}
	if entitlement == nil || !entitlement.Purchase.IsActive(s.now()) {
		return nil, nil
	}
	return entitlement, nil
}
