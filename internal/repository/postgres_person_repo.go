package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/cardeal/internal/model"
)

// PostgresPersonRepo はPostgreSQLを使用した人物リポジトリ。
type PostgresPersonRepo struct {
	db *sql.DB
}

// NewPostgresPersonRepo はPostgresPersonRepoを生成する。
func NewPostgresPersonRepo(db *sql.DB) *PostgresPersonRepo {
	return &PostgresPersonRepo{db: db}
}

// FindByID は指定IDの人物をパスポート付きで取得する。見つからない場合はnilを返す。
func (r *PostgresPersonRepo) FindByID(ctx context.Context, id int64) (*model.Person, error) {
	p := &model.Person{}
	var (
		passportID     sql.NullInt64
		passportSerie  sql.NullString
		passportNumber sql.NullString
		passportIssuer sql.NullString
		passportDate   sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT p.id, p.surname, p.name, p.fathername, p.birthdate,
		        p.country, p.index, p.region, p.avatar, p.passport_id,
		        pp.serie, pp.number, pp.issuer, pp.issue_date
		 FROM people p
		 LEFT JOIN passports pp ON pp.id = p.passport_id
		 WHERE p.id = $1`,
		id,
	).Scan(&p.ID, &p.Surname, &p.Name, &p.Fathername, &p.Birthdate,
		&p.Country, &p.Index, &p.Region, &p.Avatar, &passportID,
		&passportSerie, &passportNumber, &passportIssuer, &passportDate)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find person by ID: %w", err)
	}

	if passportID.Valid {
		p.PassportID = &passportID.Int64
		passport := &model.Passport{
			ID:     passportID.Int64,
			Serie:  passportSerie.String,
			Number: passportNumber.String,
		}
		if passportIssuer.Valid {
			passport.Issuer = &passportIssuer.String
		}
		if passportDate.Valid {
			passport.IssueDate = &passportDate.Time
		}
		p.Passport = passport
	}

	return p, nil
}

// SaveWithPassport は人物とパスポートを同一トランザクションで保存する。
// IDが0の場合は作成、それ以外は更新する。
// 保存後、person.IDとpassport.ID、person.PassportIDに採番値をセットする。
func (r *PostgresPersonRepo) SaveWithPassport(ctx context.Context, person *model.Person, passport *model.Passport) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if passport != nil {
		if passport.ID == 0 {
			err = tx.QueryRowContext(ctx,
				`INSERT INTO passports (serie, number, issuer, issue_date)
				 VALUES ($1, $2, $3, $4)
				 RETURNING id`,
				passport.Serie, passport.Number, passport.Issuer, passport.IssueDate,
			).Scan(&passport.ID)
			if err != nil {
				return fmt.Errorf("failed to insert passport: %w", err)
			}
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE passports
				 SET serie = $1, number = $2, issuer = $3, issue_date = $4, updated_at = now()
				 WHERE id = $5`,
				passport.Serie, passport.Number, passport.Issuer, passport.IssueDate, passport.ID,
			)
			if err != nil {
				return fmt.Errorf("failed to update passport: %w", err)
			}
		}
		person.PassportID = &passport.ID
	}

	if person.ID == 0 {
		err = tx.QueryRowContext(ctx,
			`INSERT INTO people (surname, name, fathername, birthdate, country, index, region, avatar, passport_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING id`,
			person.Surname, person.Name, person.Fathername, person.Birthdate,
			person.Country, person.Index, person.Region, person.Avatar, person.PassportID,
		).Scan(&person.ID)
		if err != nil {
			return fmt.Errorf("failed to insert person: %w", err)
		}
	} else {
		result, err := tx.ExecContext(ctx,
			`UPDATE people
			 SET surname = $1, name = $2, fathername = $3, birthdate = $4,
			     country = $5, index = $6, region = $7, avatar = $8, passport_id = $9,
			     updated_at = now()
			 WHERE id = $10`,
			person.Surname, person.Name, person.Fathername, person.Birthdate,
			person.Country, person.Index, person.Region, person.Avatar, person.PassportID,
			person.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update person: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("person not found: %d", person.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	person.Passport = passport
	return nil
}

// compile-time interface check
var _ PersonRepository = (*PostgresPersonRepo)(nil)
