package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/cardeal/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, telegram_id, avatar, created_at, updated_at FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Name, &user.TelegramID, &user.Avatar, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// FindOrCreateByTelegramID はtelegram_idでユーザーを検索し、
// 存在しない場合は作成して返す。
// ON CONFLICT DO NOTHINGで並行作成に耐え、常に再SELECTで確定した行を返す。
// 既存ユーザーのname/avatarは初回値を維持し、上書きしない。
func (r *PostgresUserRepo) FindOrCreateByTelegramID(ctx context.Context, telegramID, name string, avatar *string) (*model.User, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, telegram_id, avatar)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (telegram_id) DO NOTHING`,
		name, telegramID, avatar,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	user := &model.User{}
	err = r.db.QueryRowContext(ctx,
		`SELECT id, name, telegram_id, avatar, created_at, updated_at FROM users WHERE telegram_id = $1`,
		telegramID,
	).Scan(&user.ID, &user.Name, &user.TelegramID, &user.Avatar, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by telegram_id: %w", err)
	}

	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
