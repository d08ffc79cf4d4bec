package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/cardeal/internal/model"
)

// PostgresCarRepo はPostgreSQLを使用した車両リポジトリ。
type PostgresCarRepo struct {
	db *sql.DB
}

// NewPostgresCarRepo はPostgresCarRepoを生成する。
func NewPostgresCarRepo(db *sql.DB) *PostgresCarRepo {
	return &PostgresCarRepo{db: db}
}

// FindByID は指定IDの車両を取得する。見つからない場合はnilを返す。
func (r *PostgresCarRepo) FindByID(ctx context.Context, id int64) (*model.Car, error) {
	car := &model.Car{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, vin, sts, pts, plates, model, type_category, issue_year,
		        engine_model, engine_number, chassis_number, body_number, color
		 FROM cars WHERE id = $1`,
		id,
	).Scan(&car.ID, &car.VIN, &car.STS, &car.PTS, &car.Plates, &car.Model,
		&car.TypeCategory, &car.IssueYear, &car.EngineModel, &car.EngineNumber,
		&car.ChassisNumber, &car.BodyNumber, &car.Color)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find car by ID: %w", err)
	}

	return car, nil
}

// Save は車両を保存する。IDが0の場合は作成、それ以外は更新する。
// 作成時はcar.IDに採番値をセットする。
func (r *PostgresCarRepo) Save(ctx context.Context, car *model.Car) error {
	if car.ID == 0 {
		err := r.db.QueryRowContext(ctx,
			`INSERT INTO cars (vin, sts, pts, plates, model, type_category, issue_year,
			                   engine_model, engine_number, chassis_number, body_number, color)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			 RETURNING id`,
			car.VIN, car.STS, car.PTS, car.Plates, car.Model, car.TypeCategory, car.IssueYear,
			car.EngineModel, car.EngineNumber, car.ChassisNumber, car.BodyNumber, car.Color,
		).Scan(&car.ID)
		if err != nil {
			return fmt.Errorf("failed to insert car: %w", err)
		}
		return nil
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE cars
		 SET vin = $1, sts = $2, pts = $3, plates = $4, model = $5, type_category = $6,
		     issue_year = $7, engine_model = $8, engine_number = $9, chassis_number = $10,
		     body_number = $11, color = $12, updated_at = now()
		 WHERE id = $13`,
		car.VIN, car.STS, car.PTS, car.Plates, car.Model, car.TypeCategory, car.IssueYear,
		car.EngineModel, car.EngineNumber, car.ChassisNumber, car.BodyNumber, car.Color,
		car.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update car: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("car not found: %d", car.ID)
	}

	return nil
}

// compile-time interface check
var _ CarRepository = (*PostgresCarRepo)(nil)
