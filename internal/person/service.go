// Package person は人物・パスポートデータの管理を提供する。
package person

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/cardeal/internal/model"
	"github.com/hitoshi/cardeal/internal/repository"
)

// Service は人物データに関するビジネスロジックを提供する。
type Service struct {
	personRepo repository.PersonRepository
}

// NewService はServiceを生成する。
func NewService(personRepo repository.PersonRepository) *Service {
	return &Service{personRepo: personRepo}
}

// Get は指定IDの人物をパスポート付きで返す。
// 見つからない場合はPERSON_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Person, error) {
	person, err := s.personRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find person: %w", err)
	}
	if person == nil {
		return nil, model.NewPersonNotFoundError(id)
	}
	return person, nil
}

// Save は人物とネストされたパスポートを同一トランザクションで保存する。
// person.ID / passport.IDが0の場合は作成、それ以外は既存レコードの更新。
// 更新対象が存在しない場合はNOT_FOUND系エラーを返す。
// 戻り値のbool値は更新だったかどうか（true=更新, false=新規作成）。
func (s *Service) Save(ctx context.Context, person *model.Person, passport *model.Passport) (bool, error) {
	isUpdate := person.ID != 0

	if isUpdate {
		existing, err := s.personRepo.FindByID(ctx, person.ID)
		if err != nil {
			return false, fmt.Errorf("failed to find person: %w", err)
		}
		if existing == nil {
			return false, model.NewPersonNotFoundError(person.ID)
		}
	}

	if err := s.personRepo.SaveWithPassport(ctx, person, passport); err != nil {
		return false, fmt.Errorf("failed to save person: %w", err)
	}

	slog.Info("person saved",
		slog.Int64("person_id", person.ID),
		slog.Bool("updated", isUpdate),
	)
	return isUpdate, nil
}
