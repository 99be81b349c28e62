package repository

import (
	"context"
	"sync"
)

// MemorySnapshotRepo はプロセス内のキーバリューキャッシュ。
// ブラウザのlocalStorage相当で、再起動すると失われる。
type MemorySnapshotRepo struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemorySnapshotRepo はMemorySnapshotRepoを生成する。
func NewMemorySnapshotRepo() *MemorySnapshotRepo {
	return &MemorySnapshotRepo{data: make(map[string][]byte)}
}

// Load は指定キーの値を返す。
func (r *MemorySnapshotRepo) Load(_ context.Context, key string) ([]byte, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Save は指定キーの値を上書きする。
func (r *MemorySnapshotRepo) Save(_ context.Context, key string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = append([]byte(nil), payload...)
	return nil
}

var _ SnapshotRepository = (*MemorySnapshotRepo)(nil)
