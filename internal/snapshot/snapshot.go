// Package snapshot は求人コレクション（jobsData）の永続化を扱う。
//
// 起動時に保存済みの求人をストアへ読み込み、以降は求人が変更されるたびに
// コレクション全体を書き戻す。採番カウンタも "<key>.seq" に保存し、
// 再起動後に削除済みのIDが再利用されないようにする。
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/hitoshi/jobboard/internal/metrics"
	"github.com/hitoshi/jobboard/internal/model"
	"github.com/hitoshi/jobboard/internal/repository"
	"github.com/hitoshi/jobboard/internal/store"
)

// DefaultKey はブラウザ版と同じ保存キー。
const DefaultKey = "jobsData"

// Persister は求人コレクションをSnapshotRepositoryに保存する。
type Persister struct {
	repo    repository.SnapshotRepository
	key     string
	metrics metrics.MetricsCollector

	// 同時にコミットされた場合でも最新の状態で上書きするため直列化する
	mu sync.Mutex
}

// New はPersisterを生成する。keyが空の場合はDefaultKeyを使う。
func New(repo repository.SnapshotRepository, key string, collector metrics.MetricsCollector) *Persister {
	if key == "" {
		key = DefaultKey
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Persister{repo: repo, key: key, metrics: collector}
}

// Key は求人コレクションの保存キーを返す。
func (p *Persister) Key() string { return p.key }

func (p *Persister) seqKey() string { return p.key + ".seq" }

// Restore は保存済みの求人でストアの求人コレクションを置き換える。
// 保存データがない場合は何もせずfalseを返す。
func (p *Persister) Restore(ctx context.Context, st *store.Store) (bool, error) {
	payload, found, err := p.repo.Load(ctx, p.key)
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", p.key, err)
	}
	if !found {
		return false, nil
	}

	var jobs []model.Job
	if err := json.Unmarshal(payload, &jobs); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", p.key, err)
	}
	for i := range jobs {
		if jobs[i].Skills == nil {
			jobs[i].Skills = []string{}
		}
	}

	next, err := p.loadSeq(ctx)
	if err != nil {
		return false, err
	}
	if err := st.ReplaceJobs(jobs, next); err != nil {
		return false, fmt.Errorf("failed to restore %s: %w", p.key, err)
	}

	slog.Info("job snapshot restored",
		slog.String("key", p.key),
		slog.Int("jobs", len(jobs)),
		slog.Int("next_job_id", st.Sequences().Job),
	)
	return true, nil
}

// loadSeq は保存済みのカウンタ値を返す。未保存の場合は0。
func (p *Persister) loadSeq(ctx context.Context) (int, error) {
	raw, found, err := p.repo.Load(ctx, p.seqKey())
	if err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", p.seqKey(), err)
	}
	if !found {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", p.seqKey(), err)
	}
	return n, nil
}

// Attach はストアにコミットフックを登録する。
// 求人コレクションが変更されたコミットのたびに保存する。
func (p *Persister) Attach(st *store.Store) {
	st.OnCommit(func(ctx context.Context, change store.Change) {
		if !change.Collections.Has(store.CollectionJobs) {
			return
		}
		p.mu.Lock()
		defer p.mu.Unlock()

		// 読み出しもロック内で行い、後に保存した側が常に新しい状態を書く
		err := p.saveLocked(context.WithoutCancel(ctx), st.Jobs(), st.Sequences().Job)
		if err != nil {
			slog.Error("failed to save job snapshot",
				slog.String("key", p.key),
				slog.String("error", err.Error()),
			)
		}
	})
}

// Save は求人コレクションとカウンタを保存する。
func (p *Persister) Save(ctx context.Context, jobs []model.Job, nextJobID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.saveLocked(ctx, jobs, nextJobID)
}

func (p *Persister) saveLocked(ctx context.Context, jobs []model.Job, nextJobID int) error {
	err := p.save(ctx, jobs, nextJobID)
	p.metrics.RecordSnapshotSave(err == nil)
	return err
}

func (p *Persister) save(ctx context.Context, jobs []model.Job, nextJobID int) error {
	if jobs == nil {
		jobs = []model.Job{}
	}
	payload, err := json.Marshal(jobs)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", p.key, err)
	}
	if err := p.repo.Save(ctx, p.key, payload); err != nil {
		return fmt.Errorf("failed to save %s: %w", p.key, err)
	}
	if err := p.repo.Save(ctx, p.seqKey(), []byte(strconv.Itoa(nextJobID))); err != nil {
		return fmt.Errorf("failed to save %s: %w", p.seqKey(), err)
	}
	return nil
}
