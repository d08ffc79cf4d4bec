// Package contract は車両売買契約の管理を提供する。
package contract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/cardeal/internal/model"
	"github.com/hitoshi/cardeal/internal/repository"
)

// Page は契約一覧のページネーション結果。
type Page struct {
	Contracts  []*model.Contract
	Total      int
	PageNo     int
	PageSize   int
	TotalPages int
}

// Service は売買契約に関するビジネスロジックを提供する。
type Service struct {
	contractRepo repository.ContractRepository
	personRepo   repository.PersonRepository
	carRepo      repository.CarRepository
}

// NewService はServiceを生成する。
func NewService(
	contractRepo repository.ContractRepository,
	personRepo repository.PersonRepository,
	carRepo repository.CarRepository,
) *Service {
	return &Service{
		contractRepo: contractRepo,
		personRepo:   personRepo,
		carRepo:      carRepo,
	}
}

// List は契約一覧をページネーション付きで返す。
// pageNo/pageSizeが不正な場合はデフォルト値（1ページ目、10件）を使う。
func (s *Service) List(ctx context.Context, pageNo, pageSize int) (*Page, error) {
	if pageNo < 1 {
		pageNo = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	contracts, total, err := s.contractRepo.List(ctx, pageNo, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	return &Page{
		Contracts:  contracts,
		Total:      total,
		PageNo:     pageNo,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Get は指定IDの契約を関連データ付きで返す。
// 見つからない場合はCONTRACT_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Contract, error) {
	contract, err := s.contractRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find contract: %w", err)
	}
	if contract == nil {
		return nil, model.NewContractNotFoundError(id)
	}
	return contract, nil
}

// Create は契約を作成する。statusが未指定の場合はdraftになる。
// 参照先の人物・車両が存在しない場合はNOT_FOUND系エラーを返す。
func (s *Service) Create(ctx context.Context, contract *model.Contract) (*model.Contract, error) {
	if contract.Status == "" {
		contract.Status = model.ContractStatusDraft
	}

	if err := s.validateReferences(ctx, contract); err != nil {
		return nil, err
	}

	if err := s.contractRepo.Create(ctx, contract); err != nil {
		return nil, fmt.Errorf("failed to create contract: %w", err)
	}

	created, err := s.Get(ctx, contract.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("contract created", slog.Int64("contract_id", created.ID))
	return created, nil
}

// Update は既存契約を部分更新する。変更しないフィールドは既存値を維持する。
// 契約・参照先が存在しない場合はNOT_FOUND系エラーを返す。
func (s *Service) Update(ctx context.Context, id int64, patch *Patch) (*model.Contract, error) {
	contract, err := s.contractRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find contract: %w", err)
	}
	if contract == nil {
		return nil, model.NewContractNotFoundError(id)
	}

	patch.apply(contract)

	if err := s.validateReferences(ctx, contract); err != nil {
		return nil, err
	}

	if err := s.contractRepo.Update(ctx, contract); err != nil {
		return nil, fmt.Errorf("failed to update contract: %w", err)
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	slog.Info("contract updated", slog.Int64("contract_id", id))
	return updated, nil
}

// Delete は指定IDの契約を削除する。見つからない場合はCONTRACT_NOT_FOUNDを返す。
func (s *Service) Delete(ctx context.Context, id int64) error {
	contract, err := s.contractRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find contract: %w", err)
	}
	if contract == nil {
		return model.NewContractNotFoundError(id)
	}

	if err := s.contractRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete contract: %w", err)
	}

	slog.Info("contract deleted", slog.Int64("contract_id", id))
	return nil
}

// validateReferences は売り手・買い手・車両の参照先存在を確認する。
func (s *Service) validateReferences(ctx context.Context, contract *model.Contract) error {
	seller, err := s.personRepo.FindByID(ctx, contract.SellerID)
	if err != nil {
		return fmt.Errorf("failed to find seller: %w", err)
	}
	if seller == nil {
		return model.NewPersonNotFoundError(contract.SellerID)
	}

	buyer, err := s.personRepo.FindByID(ctx, contract.BuyerID)
	if err != nil {
		return fmt.Errorf("failed to find buyer: %w", err)
	}
	if buyer == nil {
		return model.NewPersonNotFoundError(contract.BuyerID)
	}

	car, err := s.carRepo.FindByID(ctx, contract.CarID)
	if err != nil {
		return fmt.Errorf("failed to find car: %w", err)
	}
	if car == nil {
		return model.NewCarNotFoundError(contract.CarID)
	}

	return nil
}
