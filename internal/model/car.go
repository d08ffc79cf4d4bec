// Package model はドメインモデルを定義する。
package model

// Car は売買対象の車両を表す。
// フィールドの多くはSTS（車両登録証）のOCR結果から事前入力される。
type Car struct {
	ID            int64
	VIN           string
	STS           *string
	PTS           *string
	Plates        *string
	Model         string
	TypeCategory  *string
	IssueYear     int
	EngineModel   *string
	EngineNumber  *string
	ChassisNumber *string
	BodyNumber    *string
	Color         *string
}
