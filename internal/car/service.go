// Package car は車両データの管理を提供する。
package car

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/cardeal/internal/model"
	"github.com/hitoshi/cardeal/internal/repository"
)

// Service は車両データに関するビジネスロジックを提供する。
type Service struct {
	carRepo repository.CarRepository
}

// NewService はServiceを生成する。
func NewService(carRepo repository.CarRepository) *Service {
	return &Service{carRepo: carRepo}
}

// Get は指定IDの車両を返す。見つからない場合はCAR_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Car, error) {
	car, err := s.carRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find car: %w", err)
	}
	if car == nil {
		return nil, model.NewCarNotFoundError(id)
	}
	return car, nil
}

// Save は車両を保存する。car.IDが0の場合は作成、それ以外は既存レコードの更新。
// 更新対象が存在しない場合はCAR_NOT_FOUNDを返す。
// 戻り値のbool値は更新だったかどうか（true=更新, false=新規作成）。
func (s *Service) Save(ctx context.Context, car *model.Car) (bool, error) {
	isUpdate := car.ID != 0

	if isUpdate {
		existing, err := s.carRepo.FindByID(ctx, car.ID)
		if err != nil {
			return false, fmt.Errorf("failed to find car: %w", err)
		}
		if existing == nil {
			return false, model.NewCarNotFoundError(car.ID)
		}
	}

	if err := s.carRepo.Save(ctx, car); err != nil {
		return false, fmt.Errorf("failed to save car: %w", err)
	}

	slog.Info("car saved",
		slog.Int64("car_id", car.ID),
		slog.Bool("updated", isUpdate),
	)
	return isUpdate, nil
}
