// Package model はドメインモデルを定義する。
package model

import "time"

// Policy は利用規約・プライバシーポリシー等の法的文書を表す。
type Policy struct {
	ID       int64
	Name     string
	URL      string
	IsActive bool
}

// PolicyConsent はユーザーのポリシー同意状態を表す。
// signed_atが非NULLの同意行が存在する場合のみSignedがtrueになる。
// signed_atをNULLに戻すことで同意の取り消し（行は保持）を表現する。
type PolicyConsent struct {
	PolicyID int64
	Name     string
	URL      string
	Signed   bool
	SignedAt *time.Time
}
