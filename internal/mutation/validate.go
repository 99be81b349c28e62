package mutation

import (
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/hitoshi/jobboard/internal/model"
)

// NormalizeSkills は各スキルの前後空白を除去し、空要素を取り除く。
// 入力順は維持する。
func NormalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SplitSkills はカンマ区切りのスキル文字列を分割して正規化する。
func SplitSkills(s string) []string {
	return NormalizeSkills(strings.Split(s, ","))
}

// normalizeEmail はメールアドレスを検証し、保存用に小文字化して返す。
func normalizeEmail(field, email string) (string, error) {
	e := model.NormalizeEmail(email)
	if e == "" {
		return "", model.NewMissingFieldsError(field)
	}
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e {
		return "", model.NewInvalidFieldError(field, "メールアドレスの形式ではありません")
	}
	return e, nil
}

// normalizeStatus はステージを小文字に揃える。既知の値以外もそのまま受け付ける。
func normalizeStatus(s model.CandidateStatus) model.CandidateStatus {
	status := model.CandidateStatus(strings.ToLower(strings.TrimSpace(string(s))))
	if status != "" && !status.IsCanonical() {
		slog.Debug("non-canonical candidate status", slog.String("status", string(status)))
	}
	return status
}

// emailLocalPart は自動作成ユーザーの表示名に使う。
func emailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}

// laterOf は単調増加を保つためにprevより前の時刻を採用しない。
func laterOf(now, prev time.Time) time.Time {
	if now.Before(prev) {
		return prev
	}
	return now
}
