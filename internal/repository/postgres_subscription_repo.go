package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/cardeal/internal/model"
)

// PostgresSubscriptionRepo はPostgreSQLを使用したサブスクリプションリポジトリ。
type PostgresSubscriptionRepo struct {
	db *sql.DB
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

// ListAvailable はstatus='active'のサブスクリプションを
// activeな期間オプション付きで返す。
func (r *PostgresSubscriptionRepo) ListAvailable(ctx context.Context) ([]*model.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.name, s.status, d.id, d.sub_id, d.days, d.price, d.status
		 FROM subscriptions s
		 LEFT JOIN subscription_durations d ON d.sub_id = s.id AND d.status = 'active'
		 WHERE s.status = 'active'
		 ORDER BY s.id, d.days`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*model.Subscription
	byID := make(map[int64]*model.Subscription)

	for rows.Next() {
		var (
			subID     int64
			subName   string
			subStatus string
			durID     sql.NullInt64
			durSubID  sql.NullInt64
			durDays   sql.NullInt64
			durPrice  sql.NullString
			durStatus sql.NullString
		)
		if err := rows.Scan(&subID, &subName, &subStatus, &durID, &durSubID, &durDays, &durPrice, &durStatus); err != nil {
			return nil, fmt.Errorf("failed to scan subscription row: %w", err)
		}

		sub, ok := byID[subID]
		if !ok {
			sub = &model.Subscription{ID: subID, Name: subName, Status: subStatus}
			byID[subID] = sub
			subs = append(subs, sub)
		}

		// LEFT JOINのため期間オプションが無いサブスクリプションはNULL行になる
		if durID.Valid {
			sub.Durations = append(sub.Durations, model.SubscriptionDuration{
				ID:     durID.Int64,
				SubID:  durSubID.Int64,
				Days:   int(durDays.Int64),
				Price:  durPrice.String,
				Status: durStatus.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscription rows: %w", err)
	}

	return subs, nil
}

// FindLatestEntitlement はユーザーの購入権のうちvalid_thruが最も遅いものを返す。
// 有効期限はサービス層がSubscriptionPurchase.IsActiveで判定する。
// 購入が1件もない場合はnilを返す。
func (r *PostgresSubscriptionRepo) FindLatestEntitlement(ctx context.Context, userID int64) (*model.Entitlement, error) {
	e := &model.Entitlement{}
	err := r.db.QueryRowContext(ctx,
		`SELECT su.id, su.user_id, su.sub_id, su.sub_dur_id, su.valid_thru, su.created_at, su.updated_at,
		        s.name, d.days
		 FROM sub_to_user su
		 JOIN subscriptions s ON s.id = su.sub_id
		 JOIN subscription_durations d ON d.id = su.sub_dur_id
		 WHERE su.user_id = $1
		 ORDER BY su.valid_thru DESC
		 LIMIT 1`,
		userID,
	).Scan(
		&e.Purchase.ID, &e.Purchase.UserID, &e.Purchase.SubID, &e.Purchase.SubDurID,
		&e.Purchase.ValidThru, &e.Purchase.CreatedAt, &e.Purchase.UpdatedAt,
		&e.SubscriptionName, &e.DurationDays,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest entitlement: %w", err)
	}

	return e, nil
}

// compile-time interface check
var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
