package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/cardeal/internal/model"
)

// PostgresContractRepo はPostgreSQLを使用した売買契約リポジトリ。
type PostgresContractRepo struct {
	db *sql.DB
}

// NewPostgresContractRepo はPostgresContractRepoを生成する。
func NewPostgresContractRepo(db *sql.DB) *PostgresContractRepo {
	return &PostgresContractRepo{db: db}
}

// 契約・売り手・買い手・車両を1クエリで取得するための共通SELECT句。
const contractSelect = `
	SELECT c.id, c.status, c.date, c.city, c.seller_id, c.buyer_id, c.car_id, c.price,
	       c.created_at, c.updated_at,
	       s.surname, s.name, s.fathername, s.birthdate, s.country, s.index, s.region, s.avatar, s.passport_id,
	       sp.serie, sp.number, sp.issuer, sp.issue_date,
	       b.surname, b.name, b.fathername, b.birthdate, b.country, b.index, b.region, b.avatar, b.passport_id,
	       bp.serie, bp.number, bp.issuer, bp.issue_date,
	       v.vin, v.sts, v.pts, v.plates, v.model, v.type_category, v.issue_year,
	       v.engine_model, v.engine_number, v.chassis_number, v.body_number, v.color
	FROM contracts c
	JOIN people s ON s.id = c.seller_id
	LEFT JOIN passports sp ON sp.id = s.passport_id
	JOIN people b ON b.id = c.buyer_id
	LEFT JOIN passports bp ON bp.id = b.passport_id
	JOIN cars v ON v.id = c.car_id`

// passportCols はLEFT JOINしたパスポート列のスキャン用一時領域。
type passportCols struct {
	serie     sql.NullString
	number    sql.NullString
	issuer    sql.NullString
	issueDate sql.NullTime
}

func (pc passportCols) toModel(id *int64) *model.Passport {
	if id == nil {
		return nil
	}
	p := &model.Passport{ID: *id, Serie: pc.serie.String, Number: pc.number.String}
	if pc.issuer.Valid {
		p.Issuer = &pc.issuer.String
	}
	if pc.issueDate.Valid {
		p.IssueDate = &pc.issueDate.Time
	}
	return p
}

// scanContract は共通SELECT句の1行をContractに組み立てる。
func scanContract(scan func(dest ...any) error) (*model.Contract, error) {
	c := &model.Contract{Seller: &model.Person{}, Buyer: &model.Person{}, Car: &model.Car{}}
	var sellerPassport, buyerPassport passportCols

	err := scan(
		&c.ID, &c.Status, &c.Date, &c.City, &c.SellerID, &c.BuyerID, &c.CarID, &c.Price,
		&c.CreatedAt, &c.UpdatedAt,
		&c.Seller.Surname, &c.Seller.Name, &c.Seller.Fathername, &c.Seller.Birthdate,
		&c.Seller.Country, &c.Seller.Index, &c.Seller.Region, &c.Seller.Avatar, &c.Seller.PassportID,
		&sellerPassport.serie, &sellerPassport.number, &sellerPassport.issuer, &sellerPassport.issueDate,
		&c.Buyer.Surname, &c.Buyer.Name, &c.Buyer.Fathername, &c.Buyer.Birthdate,
		&c.Buyer.Country, &c.Buyer.Index, &c.Buyer.Region, &c.Buyer.Avatar, &c.Buyer.PassportID,
		&buyerPassport.serie, &buyerPassport.number, &buyerPassport.issuer, &buyerPassport.issueDate,
		&c.Car.VIN, &c.Car.STS, &c.Car.PTS, &c.Car.Plates, &c.Car.Model, &c.Car.TypeCategory,
		&c.Car.IssueYear, &c.Car.EngineModel, &c.Car.EngineNumber, &c.Car.ChassisNumber,
		&c.Car.BodyNumber, &c.Car.Color,
	)
	if err != nil {
		return nil, err
	}

	c.Seller.ID = c.SellerID
	c.Buyer.ID = c.BuyerID
	c.Car.ID = c.CarID
	c.Seller.Passport = sellerPassport.toModel(c.Seller.PassportID)
	c.Buyer.Passport = buyerPassport.toModel(c.Buyer.PassportID)

	return c, nil
}

// List は契約一覧をページネーション付きで返す。
// 売り手・買い手・車両をJOINで取得し、id降順で並べる。
// 戻り値は（契約一覧, 総件数, error）。
func (r *PostgresContractRepo) List(ctx context.Context, pageNo, pageSize int) ([]*model.Contract, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM contracts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count contracts: %w", err)
	}

	offset := (pageNo - 1) * pageSize
	rows, err := r.db.QueryContext(ctx,
		contractSelect+` ORDER BY c.id DESC LIMIT $1 OFFSET $2`,
		pageSize, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	var contracts []*model.Contract
	for rows.Next() {
		c, err := scanContract(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan contract row: %w", err)
		}
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate contract rows: %w", err)
	}

	return contracts, total, nil
}

// FindByID は指定IDの契約を関連データ付きで取得する。見つからない場合はnilを返す。
func (r *PostgresContractRepo) FindByID(ctx context.Context, id int64) (*model.Contract, error) {
	row := r.db.QueryRowContext(ctx, contractSelect+` WHERE c.id = $1`, id)

	c, err := scanContract(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find contract by ID: %w", err)
	}

	return c, nil
}

// Create は契約を作成し、採番されたIDをセットする。
func (r *PostgresContractRepo) Create(ctx context.Context, contract *model.Contract) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO contracts (status, date, city, seller_id, buyer_id, car_id, price)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		contract.Status, contract.Date, contract.City,
		contract.SellerID, contract.BuyerID, contract.CarID, contract.Price,
	).Scan(&contract.ID, &contract.CreatedAt, &contract.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert contract: %w", err)
	}
	return nil
}

// Update は契約を更新する。見つからない場合はエラーを返す。
func (r *PostgresContractRepo) Update(ctx context.Context, contract *model.Contract) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE contracts
		 SET status = $1, date = $2, city = $3, seller_id = $4, buyer_id = $5,
		     car_id = $6, price = $7, updated_at = now()
		 WHERE id = $8`,
		contract.Status, contract.Date, contract.City,
		contract.SellerID, contract.BuyerID, contract.CarID, contract.Price,
		contract.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update contract: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("contract not found: %d", contract.ID)
	}
	return nil
}

// DeleteByID は指定IDの契約を削除する。見つからない場合はエラーを返す。
func (r *PostgresContractRepo) DeleteByID(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM contracts WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete contract: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("contract not found: %d", id)
	}
	return nil
}

// compile-time interface check
var _ ContractRepository = (*PostgresContractRepo)(nil)
