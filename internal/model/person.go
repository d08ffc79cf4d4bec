// Package model はドメインモデルを定義する。
package model

import "time"

// Passport は個人のパスポート（身分証明書）情報を表す。
type Passport struct {
	ID        int64
	Serie     string
	Number    string
	Issuer    *string
	IssueDate *time.Time
}

// Person は契約の当事者（売主・買主）となる個人を表す。
// パスポートOCRの事前入力で部分的にしか埋まらないことがあるため、
// ID以外のフィールドはすべて省略可能。
type Person struct {
	ID         int64
	Surname    *string
	Name       *string
	Fathername *string
	Birthdate  *time.Time
	Country    *string
	Index      *string
	Region     *string
	Avatar     *string
	PassportID *int64
	Passport   *Passport
}
