// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの役割を表す。
type Role string

const (
	// RoleAdmin は管理者。ユーザー追加と全体集計を担当する。
	RoleAdmin Role = "admin"
	// RoleManager は採用マネージャー。求人を作成・管理する。
	RoleManager Role = "manager"
	// RoleRecruiter はリクルーター。候補者を紹介し、選考状況を更新する。
	RoleRecruiter Role = "recruiter"
)

// Valid は既知のロールかどうかを返す。
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleRecruiter:
		return true
	default:
		return false
	}
}

// User はジョブボードの利用ユーザーを表す。
// 作成後に削除されることはない。
type User struct {
	ID        int       `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Email     string    `json:"email" yaml:"email"`
	Role      Role      `json:"role" yaml:"role"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt,omitempty"`
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    int
	ExpiresAt time.Time
	CreatedAt time.Time
}
