// Package store はジョブボードのエンティティストアを提供する。
//
// ユーザー・求人・候補者の3コレクションと、コレクションごとの採番カウンタを保持する。
// 読み取りは複製を返し、書き込みはRunInTransaction経由のコピーオンライト方式で行う。
// トランザクション関数がエラーを返した場合、ストアの状態は一切変更されない。
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hitoshi/jobboard/internal/model"
)

// Collection は変更されたコレクションを表すビットフラグ。
type Collection uint8

const (
	// CollectionUsers はユーザーコレクション。
	CollectionUsers Collection = 1 << iota
	// CollectionJobs は求人コレクション。
	CollectionJobs
	// CollectionCandidates は候補者コレクション。
	CollectionCandidates
)

// Has はフラグcを含むかを返す。
func (c Collection) Has(x Collection) bool {
	return c&x != 0
}

// Sequences は各コレクションで次に払い出すIDを保持する。
// カウンタは単調増加し、削除によって巻き戻ることはない。
type Sequences struct {
	User      int `json:"user"`
	Job       int `json:"job"`
	Candidate int `json:"candidate"`
}

// Snapshot はストア全体の時点コピー。
// Jobs と Candidates は新しいものが先頭になる挿入順で並ぶ。
type Snapshot struct {
	Users      []model.User      `json:"users" yaml:"users"`
	Jobs       []model.Job       `json:"jobs" yaml:"jobs"`
	Candidates []model.Candidate `json:"candidates" yaml:"candidates"`
	Sequences  Sequences         `json:"sequences" yaml:"-"`
}

// Change はコミットされたトランザクションの内容を表す。
type Change struct {
	Collections Collection
	Snapshot    Snapshot
}

// CommitHook はトランザクションのコミット後に呼び出される。
// ロック外で呼ばれるため、ストアを再度読み書きしてもよい。
type CommitHook func(ctx context.Context, change Change)

type state struct {
	users      []model.User
	jobs       []model.Job
	candidates []model.Candidate
	seq        Sequences
}

// Store はインメモリのエンティティストア。
// 書き込みは単一のRWMutexで直列化する。
type Store struct {
	mu    sync.RWMutex
	state state
	now   func() time.Time
	hooks []CommitHook
}

// Option はStoreの生成オプション。
type Option func(*Store)

// WithClock はタイムスタンプに使う時計を差し替える。テスト用。
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New は空のStoreを生成する。IDは1から払い出す。
func New(opts ...Option) *Store {
	s := &Store{
		state: state{seq: Sequences{User: 1, Job: 1, Candidate: 1}},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnCommit はコミットフックを登録する。
func (s *Store) OnCommit(hook CommitHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Import はスナップショットでストア全体を置き換える。
// ID重複がある場合はエラーを返し、状態を変更しない。
// カウンタはスナップショットの値と読み込んだ最大ID+1の大きい方に設定される。
func (s *Store) Import(snap Snapshot) error {
	if err := checkUniqueIDs(snap); err != nil {
		return err
	}

	next := state{
		users:      cloneUsers(snap.Users),
		jobs:       cloneJobs(snap.Jobs),
		candidates: cloneCandidates(snap.Candidates),
		seq:        snap.Sequences,
	}
	next.seq.User = max(next.seq.User, maxUserID(next.users)+1)
	next.seq.Job = max(next.seq.Job, maxJobID(next.jobs)+1)
	next.seq.Candidate = max(next.seq.Candidate, maxCandidateID(next.candidates)+1)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = next
	return nil
}

// ReplaceJobs は求人コレクションだけを置き換える。
// 永続化済みスナップショットを起動時にマージするために使う。
// nextJobIDは永続化されていたカウンタ値（不明な場合は0）。
func (s *Store) ReplaceJobs(jobs []model.Job, nextJobID int) error {
	if err := checkUniqueIDs(Snapshot{Jobs: jobs}); err != nil {
		return err
	}

	replaced := cloneJobs(jobs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.jobs = replaced
	s.state.seq.Job = max(s.state.seq.Job, nextJobID, maxJobID(replaced)+1)
	return nil
}

// Export はストア全体の複製を返す。
func (s *Store) Export() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.snapshot()
}

// Users はユーザー一覧の複製を作成順に返す。
func (s *Store) Users() []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUsers(s.state.users)
}

// Jobs は求人一覧の複製を新しい順に返す。
func (s *Store) Jobs() []model.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneJobs(s.state.jobs)
}

// Candidates は候補者一覧の複製を新しい順に返す。
func (s *Store) Candidates() []model.Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCandidates(s.state.candidates)
}

// User は指定IDのユーザーを返す。
func (s *Store) User(id int) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.user(id)
}

// UserByEmail はメールアドレス（大文字小文字無視）でユーザーを検索する。
func (s *Store) UserByEmail(email string) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.userByEmail(email)
}

// Job は指定IDの求人を返す。
func (s *Store) Job(id int) (model.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.job(id)
}

// Candidate は指定IDの候補者を返す。
func (s *Store) Candidate(id int) (model.Candidate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.candidate(id)
}

// Sequences は現在のカウンタ値を返す。
func (s *Store) Sequences() Sequences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.seq
}

// RunInTransaction はfnをトランザクション内で実行する。
// fnがnilを返した場合のみ変更をコミットし、コミットフックを呼び出す。
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	change, hooks, err := s.commit(fn)
	if err != nil || change.Collections == 0 {
		return err
	}

	for _, hook := range hooks {
		hook(ctx, change)
	}
	return nil
}

// commit はロックを保持したままfnを適用し、成功時のみ状態を差し替える。
func (s *Store) commit(fn func(tx *Tx) error) (Change, []CommitHook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{
		st:  s.state.shallowCopy(),
		now: s.now(),
	}
	if err := fn(tx); err != nil {
		return Change{}, nil, err
	}
	if tx.changed == 0 {
		return Change{}, nil, nil
	}

	s.state = tx.st
	change := Change{Collections: tx.changed, Snapshot: s.state.snapshot()}
	return change, append([]CommitHook(nil), s.hooks...), nil
}

// shallowCopy はスライスヘッダだけを複製する。
// 要素の内部スライスはTx側で常にClone済みの値に置き換えるため共有して問題ない。
func (st state) shallowCopy() state {
	return state{
		users:      append([]model.User(nil), st.users...),
		jobs:       append([]model.Job(nil), st.jobs...),
		candidates: append([]model.Candidate(nil), st.candidates...),
		seq:        st.seq,
	}
}

func (st state) snapshot() Snapshot {
	return Snapshot{
		Users:      cloneUsers(st.users),
		Jobs:       cloneJobs(st.jobs),
		Candidates: cloneCandidates(st.candidates),
		Sequences:  st.seq,
	}
}

func (st state) user(id int) (model.User, bool) {
	for _, u := range st.users {
		if u.ID == id {
			return u, true
		}
	}
	return model.User{}, false
}

func (st state) userByEmail(email string) (model.User, bool) {
	for _, u := range st.users {
		if model.SameEmail(u.Email, email) {
			return u, true
		}
	}
	return model.User{}, false
}

func (st state) jobIndex(id int) int {
	for i, j := range st.jobs {
		if j.ID == id {
			return i
		}
	}
	return -1
}

func (st state) job(id int) (model.Job, bool) {
	if i := st.jobIndex(id); i >= 0 {
		return st.jobs[i].Clone(), true
	}
	return model.Job{}, false
}

func (st state) candidateIndex(id int) int {
	for i, c := range st.candidates {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (st state) candidate(id int) (model.Candidate, bool) {
	if i := st.candidateIndex(id); i >= 0 {
		return st.candidates[i].Clone(), true
	}
	return model.Candidate{}, false
}

func checkUniqueIDs(snap Snapshot) error {
	seen := make(map[int]struct{}, len(snap.Users))
	for _, u := range snap.Users {
		if u.ID <= 0 {
			return fmt.Errorf("user has non-positive id: %d", u.ID)
		}
		if _, dup := seen[u.ID]; dup {
			return fmt.Errorf("duplicate user id: %d", u.ID)
		}
		seen[u.ID] = struct{}{}
	}
	seen = make(map[int]struct{}, len(snap.Jobs))
	for _, j := range snap.Jobs {
		if j.ID <= 0 {
			return fmt.Errorf("job has non-positive id: %d", j.ID)
		}
		if _, dup := seen[j.ID]; dup {
			return fmt.Errorf("duplicate job id: %d", j.ID)
		}
		seen[j.ID] = struct{}{}
	}
	seen = make(map[int]struct{}, len(snap.Candidates))
	for _, c := range snap.Candidates {
		if c.ID <= 0 {
			return fmt.Errorf("candidate has non-positive id: %d", c.ID)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("duplicate candidate id: %d", c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

func maxUserID(users []model.User) int {
	m := 0
	for _, u := range users {
		m = max(m, u.ID)
	}
	return m
}

func maxJobID(jobs []model.Job) int {
	m := 0
	for _, j := range jobs {
		m = max(m, j.ID)
	}
	return m
}

func maxCandidateID(candidates []model.Candidate) int {
	m := 0
	for _, c := range candidates {
		m = max(m, c.ID)
	}
	return m
}

func cloneUsers(users []model.User) []model.User {
	return append([]model.User{}, users...)
}

func cloneJobs(jobs []model.Job) []model.Job {
	out := make([]model.Job, len(jobs))
	for i, j := range jobs {
		out[i] = j.Clone()
	}
	return out
}

func cloneCandidates(candidates []model.Candidate) []model.Candidate {
	out := make([]model.Candidate, len(candidates))
	for i, c := range candidates {
		out[i] = c.Clone()
	}
	return out
}
