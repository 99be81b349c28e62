package security

import (
	"testing"
)

// TestCheckText はプレーンテキストが入力どおりに返ることを検証する。
func TestCheckText(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
	}{
		{"プレーンテキスト", "Strong API skills"},
		{"先頭の空白は維持される", " API skills"},
		{"アンパサンド", "R&D background"},
		{"比較記号", "Salary < 50k & bonus > 10%"},
		{"数字の前の不等号", "5<10 years"},
		{"実体参照はそのまま保存する", "Tom &amp; Jerry"},
		{"改行", "line one\r\nline two"},
		{"非ASCII", "Straße – ₹20 LPA"},
		{"空文字列", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := sanitizer.CheckText(tt.input)
			if !ok {
				t.Fatalf("CheckText(%q) rejected plain text", tt.input)
			}
			if got != tt.input {
				t.Errorf("CheckText(%q) = %q, want input unchanged", tt.input, got)
			}
		})
	}
}

// TestCheckText_RejectsMarkup はタグを含む入力を拒否することを検証する。
func TestCheckText_RejectsMarkup(t *testing.T) {
	sanitizer := NewTextSanitizer()

	for _, input := range []string{
		"<b>react</b> skills",
		"Salary <negotiable> & perks",
		`called on WhatsApp<script>alert("xss")</script>`,
		`<p onclick="x()">follow up</p> next week`,
		"ping <!-- hidden --> later",
	} {
		if got, ok := sanitizer.CheckText(input); ok {
			t.Errorf("CheckText(%q) = %q, want rejection", input, got)
		}
	}
}

func TestSanitizeURL(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		input  string
		wantOK bool
	}{
		{"https://example.com/riya.pdf", true},
		{"http://example.com/cv", true},
		{"", true},
		{"javascript:alert(1)", false},
		{"/relative/path.pdf", false},
		{"ftp://example.com/cv.pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, ok := sanitizer.SanitizeURL(tt.input)
			if ok != tt.wantOK {
				t.Errorf("SanitizeURL(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
		})
	}
}
