package model

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold は大文字小文字を区別しない比較用に文字列を正規化する。
// 前後の空白を除去したうえでUnicodeのケースフォールディングを適用する。
func Fold(s string) string {
	// cases.Caserはゴルーチン間で共有できないため呼び出しごとに生成する
	return cases.Fold().String(strings.TrimSpace(s))
}

// NormalizeEmail は保存用にメールアドレスの前後空白を除去して小文字化する。
// ケースフォールディングは別の宛先に変わることがあるため保存には使わない。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SameEmail は2つのメールアドレスが大文字小文字を無視して一致するかを返す。
func SameEmail(a, b string) bool {
	return Fold(a) == Fold(b)
}
