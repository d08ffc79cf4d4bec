// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/cardeal/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindOrCreateByTelegramID はtelegram_idでユーザーを検索し、
	// 存在しない場合は作成して返す。既存ユーザーのname/avatarは更新しない。
	FindOrCreateByTelegramID(ctx context.Context, telegramID, name string, avatar *string) (*model.User, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// SubscriptionRepository はサブスクリプションデータの永続化インターフェース。
type SubscriptionRepository interface {
	// ListAvailable はstatus='active'のサブスクリプションを
	// activeな期間オプション付きで返す。
	ListAvailable(ctx context.Context) ([]*model.Subscription, error)

	// FindLatestEntitlement はユーザーの購入権のうちvalid_thruが最も遅いものを返す。
	// 有効期限は判定せず、購入が1件もない場合はnilを返す。
	FindLatestEntitlement(ctx context.Context, userID int64) (*model.Entitlement, error)
}

// PolicyRepository はポリシー同意データの永続化インターフェース。
type PolicyRepository interface {
	// ListActive はis_active=trueのポリシー一覧を返す。
	ListActive(ctx context.Context) ([]*model.Policy, error)

	// CountActiveByIDs は指定IDのうちis_active=trueのポリシー数を返す。
	CountActiveByIDs(ctx context.Context, ids []int64) (int, error)

	// SignedPolicyIDs はユーザーが署名済み（signed_at IS NOT NULL）の
	// ポリシーID集合を返す。
	SignedPolicyIDs(ctx context.Context, userID int64) (map[int64]time.Time, error)

	// Sign はユーザーのポリシー同意をUPSERTし、signed_atを現在時刻に設定する。
	Sign(ctx context.Context, userID int64, policyIDs []int64, signedAt time.Time) error

	// Unsign は既存の同意行のsigned_atをNULLに戻す。
	// 同意行が存在しないポリシーは変更されない。
	Unsign(ctx context.Context, userID int64, policyIDs []int64) error
}

// PersonRepository は人物・パスポートデータの永続化インターフェース。
type PersonRepository interface {
	// FindByID は指定IDの人物をパスポート付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Person, error)

	// SaveWithPassport は人物とパスポートを同一トランザクションで保存する。
	// IDが0の場合は作成、それ以外は更新する。
	SaveWithPassport(ctx context.Context, person *model.Person, passport *model.Passport) error
}

// CarRepository は車両データの永続化インターフェース。
type CarRepository interface {
	// FindByID は指定IDの車両を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Car, error)

	// Save は車両を保存する。IDが0の場合は作成、それ以外は更新する。
	Save(ctx context.Context, car *model.Car) error
}

// ContractRepository は売買契約データの永続化インターフェース。
type ContractRepository interface {
	// List は契約一覧をページネーション付きで返す。
	// 売り手・買い手・車両をJOINで取得し、id降順で並べる。
	List(ctx context.Context, pageNo, pageSize int) ([]*model.Contract, int, error)

	// FindByID は指定IDの契約を関連データ付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Contract, error)

	// Create は契約を作成し、採番されたIDをセットする。
	Create(ctx context.Context, contract *model.Contract) error

	// Update は契約を更新する。見つからない場合はエラーを返す。
	Update(ctx context.Context, contract *model.Contract) error

	// DeleteByID は指定IDの契約を削除する。見つからない場合はエラーを返す。
	DeleteByID(ctx context.Context, id int64) error
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
