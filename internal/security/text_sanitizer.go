// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService は外部プロバイダー由来の文字列（Telegramユーザー名、
// OCR認識結果など）からHTMLタグを除去し、プレーンテキストとして保存する。
// bluemondayのStrictPolicyにより全タグ・全属性が除去される。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はプレーンテキストサニタイズ機能のインターフェースを定義する。
// ユーザー名・OCR抽出テキストの保存前に使用される。
type TextSanitizerService interface {
	// Sanitize は入力から全HTMLタグを除去したプレーンテキストを返す。
	// 前後の空白もトリムする。空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは許可タグを一切持たないため、全タグが除去される。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力から全HTMLタグを除去したプレーンテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
