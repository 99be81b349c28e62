package store

import (
	"errors"
	"time"

	"github.com/hitoshi/jobboard/internal/model"
)

// ErrNotFound は更新・削除対象のエンティティが存在しない場合に返される。
var ErrNotFound = errors.New("entity not found")

// Tx は1回のミューテーションで使う作業用の状態。
// RunInTransactionのコールバック内でのみ有効。
type Tx struct {
	st      state
	now     time.Time
	changed Collection
}

// Now はトランザクション開始時刻を返す。
func (tx *Tx) Now() time.Time {
	return tx.now
}

// Users はユーザー一覧の複製を返す。
func (tx *Tx) Users() []model.User {
	return cloneUsers(tx.st.users)
}

// User は指定IDのユーザーを返す。
func (tx *Tx) User(id int) (model.User, bool) {
	return tx.st.user(id)
}

// UserByEmail はメールアドレス（大文字小文字無視）でユーザーを検索する。
func (tx *Tx) UserByEmail(email string) (model.User, bool) {
	return tx.st.userByEmail(email)
}

// InsertUser は新しいIDを払い出してユーザーを末尾に追加する。
func (tx *Tx) InsertUser(u model.User) model.User {
	u.ID = tx.st.seq.User
	tx.st.seq.User++
	if u.CreatedAt.IsZero() {
		u.CreatedAt = tx.now
	}
	tx.st.users = append(tx.st.users, u)
	tx.changed |= CollectionUsers
	return u
}

// Job は指定IDの求人を返す。
func (tx *Tx) Job(id int) (model.Job, bool) {
	return tx.st.job(id)
}

// InsertJob は新しいIDを払い出して求人を先頭に追加する。
func (tx *Tx) InsertJob(j model.Job) model.Job {
	j = j.Clone()
	j.ID = tx.st.seq.Job
	tx.st.seq.Job++
	if j.CreatedAt.IsZero() {
		j.CreatedAt = tx.now
	}
	tx.st.jobs = append([]model.Job{j}, tx.st.jobs...)
	tx.changed |= CollectionJobs
	return j.Clone()
}

// PutJob は同じIDの既存求人を置き換える。並び順は維持する。
func (tx *Tx) PutJob(j model.Job) error {
	i := tx.st.jobIndex(j.ID)
	if i < 0 {
		return ErrNotFound
	}
	tx.st.jobs[i] = j.Clone()
	tx.changed |= CollectionJobs
	return nil
}

// DeleteJob は指定IDの求人を削除する。
// 参照している候補者は削除しない。
func (tx *Tx) DeleteJob(id int) error {
	i := tx.st.jobIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	tx.st.jobs = append(tx.st.jobs[:i:i], tx.st.jobs[i+1:]...)
	tx.changed |= CollectionJobs
	return nil
}

// Candidate は指定IDの候補者を返す。
func (tx *Tx) Candidate(id int) (model.Candidate, bool) {
	return tx.st.candidate(id)
}

// InsertCandidate は新しいIDを払い出して候補者を先頭に追加する。
func (tx *Tx) InsertCandidate(c model.Candidate) model.Candidate {
	c = c.Clone()
	c.ID = tx.st.seq.Candidate
	tx.st.seq.Candidate++
	if c.CreatedAt.IsZero() {
		c.CreatedAt = tx.now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	if c.ContactHistory == nil {
		c.ContactHistory = []model.ContactNote{}
	}
	tx.st.candidates = append([]model.Candidate{c}, tx.st.candidates...)
	tx.changed |= CollectionCandidates
	return c.Clone()
}

// PutCandidate は同じIDの既存候補者を置き換える。並び順は維持する。
func (tx *Tx) PutCandidate(c model.Candidate) error {
	i := tx.st.candidateIndex(c.ID)
	if i < 0 {
		return ErrNotFound
	}
	tx.st.candidates[i] = c.Clone()
	tx.changed |= CollectionCandidates
	return nil
}
