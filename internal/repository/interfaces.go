// Package repository はデータ永続化のインターフェースを定義する。
//
// エンティティ本体はインメモリのstoreが保持する。ここで扱うのは
// ログインセッションと、キー単位のスナップショット（jobsData）のみ。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/jobboard/internal/model"
)

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れ・未登録の場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しなくてもエラーにしない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired はnow時点で期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SnapshotRepository はキー単位のスナップショットを保存するインターフェース。
// 値は呼び出し側でシリアライズ済みのバイト列として扱う。
type SnapshotRepository interface {
	// Load は指定キーの値を返す。存在しない場合はfound=falseを返す。
	Load(ctx context.Context, key string) (payload []byte, found bool, err error)
	// Save は指定キーの値を丸ごと上書きする。
	Save(ctx context.Context, key string, payload []byte) error
}
