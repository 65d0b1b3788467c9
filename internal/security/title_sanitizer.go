package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TitleSanitizerService はユーザー入力タイトルのサニタイズ機能のインターフェースを定義する。
// サイト追跡の登録時とタイトル更新時に使用される。
type TitleSanitizerService interface {
	// Sanitize はタイトル文字列からHTMLタグを全て除去してプレーンテキストを返す。
	// タイトルは表示専用の短いテキストであり、マークアップを一切許可しない。
	// 前後の空白は除去される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// titleSanitizer はTitleSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type titleSanitizer struct {
	policy *bluemonday.Policy
}

// NewTitleSanitizer はTitleSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全てのHTML要素と属性を除去し、テキストのみを残す。
func NewTitleSanitizer() *titleSanitizer {
	return &titleSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はタイトル文字列からHTMLタグを全て除去してプレーンテキストを返す。
func (s *titleSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
