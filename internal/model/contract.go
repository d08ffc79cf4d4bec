// Package model はドメインモデルを定義する。
package model

import "time"

// 契約ステータス
const (
	ContractStatusDraft     = "draft"
	ContractStatusGenerated = "generated"
)

// Contract は車両売買契約を表す。
// 売主・買主（Person）と車両（Car）を価格・締結地・締結日とともに紐付ける。
type Contract struct {
	ID        int64
	Status    string
	Date      time.Time
	City      string
	SellerID  int64
	BuyerID   int64
	CarID     int64
	Price     string
	CreatedAt time.Time
	UpdatedAt time.Time

	Seller *Person
	Buyer  *Person
	Car    *Car
}

// IsValidContractStatus は契約ステータスが許可された値かどうかを判定する。
func IsValidContractStatus(status string) bool {
	switch status {
	case ContractStatusDraft, ContractStatusGenerated:
		return true
	default:
		return false
	}
}
