package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/cardeal/internal/model"
)

// PostgresPolicyRepo はPostgreSQLを使用したポリシーリポジトリ。
type PostgresPolicyRepo struct {
	db *sql.DB
}

// NewPostgresPolicyRepo はPostgresPolicyRepoを生成する。
func NewPostgresPolicyRepo(db *sql.DB) *PostgresPolicyRepo {
	return &PostgresPolicyRepo{db: db}
}

// ListActive はis_active=trueのポリシー一覧を返す。
func (r *PostgresPolicyRepo) ListActive(ctx context.Context) ([]*model.Policy, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, url, is_active FROM policies WHERE is_active = true ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	defer rows.Close()

	var policies []*model.Policy
	for rows.Next() {
		p := &model.Policy{}
		if err := rows.Scan(&p.ID, &p.Name, &p.URL, &p.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan policy row: %w", err)
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate policy rows: %w", err)
	}

	return policies, nil
}

// CountActiveByIDs は指定IDのうちis_active=trueのポリシー数を返す。
func (r *PostgresPolicyRepo) CountActiveByIDs(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM policies WHERE is_active = true AND id = ANY($1)`,
		pq.Array(ids),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count policies: %w", err)
	}

	return count, nil
}

// SignedPolicyIDs はユーザーが署名済み（signed_at IS NOT NULL）の
// ポリシーID集合を返す。
func (r *PostgresPolicyRepo) SignedPolicyIDs(ctx context.Context, userID int64) (map[int64]time.Time, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT policy_id, signed_at FROM user_policies
		 WHERE user_id = $1 AND signed_at IS NOT NULL`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list signed policies: %w", err)
	}
	defer rows.Close()

	signed := make(map[int64]time.Time)
	for rows.Next() {
		var policyID int64
		var signedAt time.Time
		if err := rows.Scan(&policyID, &signedAt); err != nil {
			return nil, fmt.Errorf("failed to scan signed policy row: %w", err)
		}
		signed[policyID] = signedAt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate signed policy rows: %w", err)
	}

	return signed, nil
}

// Sign はユーザーのポリシー同意をUPSERTし、signed_atを指定時刻に設定する。
// 同一ポリシーへの再署名は冪等にsigned_atを更新する。
func (r *PostgresPolicyRepo) Sign(ctx context.Context, userID int64, policyIDs []int64, signedAt time.Time) error {
	if len(policyIDs) == 0 {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_policies (user_id, policy_id, signed_at)
		 SELECT $1, unnest($2::bigint[]), $3
		 ON CONFLICT (user_id, policy_id)
		 DO UPDATE SET signed_at = EXCLUDED.signed_at, updated_at = now()`,
		userID, pq.Array(policyIDs), signedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to sign policies: %w", err)
	}

	return nil
}

// Unsign は既存の同意行のsigned_atをNULLに戻す。
// 同意行が存在しないポリシーは変更されない。
func (r *PostgresPolicyRepo) Unsign(ctx context.Context, userID int64, policyIDs []int64) error {
	if len(policyIDs) == 0 {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE user_policies SET signed_at = NULL, updated_at = now()
		 WHERE user_id = $1 AND policy_id = ANY($2)`,
		userID, pq.Array(policyIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to unsign policies: %w", err)
	}

	return nil
}

// compile-time interface check
var _ PolicyRepository = (*PostgresPolicyRepo)(nil)
