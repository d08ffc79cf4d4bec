// Package model はドメインモデルを定義する。
package model

import "time"

// Subscription は販売中のサブスクリプションプランを表す。
type Subscription struct {
	ID        int64
	Name      string
	Status    string
	Durations []SubscriptionDuration
}

// SubscriptionDuration はサブスクリプションの期間と価格のバリエーションを表す。
type SubscriptionDuration struct {
	ID     int64
	SubID  int64
	Days   int
	Price  string
	Status string
}

// SubscriptionPurchase はユーザーのサブスクリプション購入記録（sub_to_user行）を表す。
// valid_thruが現在時刻より厳密に後である場合のみ有効とみなす。
type SubscriptionPurchase struct {
	ID        int64
	UserID    int64
	SubID     int64
	SubDurID  int64
	ValidThru time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entitlement は購入記録にプラン名と期間日数を結合した読み取り専用モデル。
// /currentレスポンスのsubフィールドに使用する。有効性の判定はPurchase.IsActiveで行う。
type Entitlement struct {
	Purchase         SubscriptionPurchase
	SubscriptionName string
	DurationDays     int
}

// IsActive は購入記録が指定時刻において有効かどうかを返す。
// valid_thruがちょうどnowと等しい場合は無効（厳密な大小比較）。
func (p *SubscriptionPurchase) IsActive(now time.Time) bool {
	return p.ValidThru.After(now)
}
