package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteSnapshotRepo は単一ファイルのSQLiteにスナップショットを保存する。
// テーブルは key / payload の2カラムのみで、保存のたびに丸ごと上書きする。
type SQLiteSnapshotRepo struct {
	db   *sql.DB
	path string
}

// NewSQLiteSnapshotRepo はSQLiteファイルを開き、必要なテーブルを作成する。
func NewSQLiteSnapshotRepo(path string) (*SQLiteSnapshotRepo, error) {
	if path == "" {
		path = "jobboard.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv_snapshots (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create kv_snapshots table: %w", err)
	}
	return &SQLiteSnapshotRepo{db: db, path: path}, nil
}

// Load は指定キーの値を返す。
func (r *SQLiteSnapshotRepo) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM kv_snapshots WHERE key = ?`, key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select snapshot %s: %w", key, err)
	}
	return payload, true, nil
}

// Save は指定キーの値を上書きする。
func (r *SQLiteSnapshotRepo) Save(ctx context.Context, key string, payload []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO kv_snapshots(key, payload) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload`,
		key, payload,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", key, err)
	}
	return nil
}

// Close はデータベースを閉じる。
func (r *SQLiteSnapshotRepo) Close() error {
	return r.db.Close()
}

// Path は使用中のファイルパスを返す。
func (r *SQLiteSnapshotRepo) Path() string { return r.path }

var _ SnapshotRepository = (*SQLiteSnapshotRepo)(nil)
