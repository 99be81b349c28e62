// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は候補者のメモや連絡履歴など、利用者が自由入力する
// テキストにHTMLが含まれていないかを検査する。bluemondayのStrictPolicyで
// タグを除去した結果が入力と一致するものだけをプレーンテキストとして受け付け、
// 保存する値は入力そのものとする。
package security

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は自由入力テキストのサニタイズ機能のインターフェース。
// ミューテーション層で保存前に使用される。
type TextSanitizerService interface {
	// CheckText はHTMLタグを含まないテキストを入力どおりに返す。
	// タグやコメントを含む場合はfalseを返す。"a < b" のような比較記号や
	// 実体参照はタグとみなさない。
	CheckText(raw string) (string, bool)
	// SanitizeURL は履歴書リンクを検証する。
	// http/httpsの絶対URLのみ許可し、それ以外はfalseを返す。
	SanitizeURL(raw string) (string, bool)
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーはゴルーチン間で共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// CheckText はHTMLタグを含まないテキストを入力どおりに返す。
func (s *textSanitizer) CheckText(raw string) (string, bool) {
	if raw == "" {
		return "", true
	}
	// StrictPolicyは本文をエスケープし、改行をLFに揃えるため双方を同じ形にして比べる
	stripped := plainForm(s.policy.Sanitize(raw))
	if stripped != plainForm(raw) {
		return "", false
	}
	return raw, true
}

func plainForm(s string) string {
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// SanitizeURL は履歴書リンクを検証する。空文字列は未指定として許可する。
func (s *textSanitizer) SanitizeURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", true
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}
