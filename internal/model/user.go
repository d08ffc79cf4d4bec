// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// Telegram経由の電話番号認証で初回ログイン時に自動作成される。
type User struct {
	ID         int64
	Name       string
	TelegramID string
	Avatar     *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}
