package mutation

import (
	"time"

	"github.com/hitoshi/jobboard/internal/model"
)

// Kind はミューテーションの種類。ログとメトリクスのラベルに使う。
type Kind string

const (
	KindLogin             Kind = "login"
	KindLogout            Kind = "logout"
	KindAddUser           Kind = "addUser"
	KindAddJob            Kind = "addJob"
	KindUpdateJob         Kind = "updateJob"
	KindDeleteJob         Kind = "deleteJob"
	KindToggleJobActive   Kind = "toggleJobActive"
	KindAddCandidate      Kind = "addCandidate"
	KindReferApplicant    Kind = "referApplicant"
	KindUpdateCandidate   Kind = "updateCandidate"
	KindAppendContactNote Kind = "appendContactNote"
)

// Command はDispatchに渡すミューテーション。
// 具体的な型は以下のコマンド構造体のいずれか。
type Command interface {
	Kind() Kind
}

// Login はメールアドレスでログインする。
type Login struct {
	Email string
}

// Logout はセッションを破棄する。
type Logout struct {
	SessionID string
}

// AddUser はマネージャーまたはリクルーターを追加する。管理者のみ実行できる。
type AddUser struct {
	Actor model.User
	Name  string
	Email string
	Role  model.Role
}

// AddJob は求人を作成する。
// CreatedByが0の場合は実行者自身を作成者とする。
// IsActiveがnilの場合は公開状態で作成する。
type AddJob struct {
	Actor       model.User
	Title       string
	Description string
	Skills      []string
	Location    string
	Salary      string
	CreatedBy   int
	RecruiterID *int
	IsActive    *bool
}

// UpdateJob は求人を部分更新する。
type UpdateJob struct {
	Actor model.User
	ID    int
	Patch model.JobPatch
}

// DeleteJob は求人を削除する。候補者は削除しない。
type DeleteJob struct {
	Actor model.User
	ID    int
}

// ToggleJobActive は求人の公開状態を反転する。
type ToggleJobActive struct {
	Actor model.User
	ID    int
}

// AddCandidate は候補者を求人に紹介する。
// ReferredByが0の場合は実行者自身を紹介者とする。
type AddCandidate struct {
	Actor          model.User
	Name           string
	Email          string
	Phone          string
	Resume         string
	Notes          string
	AppliedForJob  int
	ReferredBy     int
	Status         model.CandidateStatus
	ContactHistory []model.ContactNote
}

// ReferApplicant はAddCandidateの別名。
type ReferApplicant AddCandidate

// UpdateCandidate は候補者を部分更新する。連絡履歴は変更できない。
type UpdateCandidate struct {
	Actor model.User
	ID    int
	Patch model.CandidatePatch
}

// AppendContactNote は候補者の連絡履歴に1件追記する。
// Dateがゼロ値の場合は現在時刻を使う。
type AppendContactNote struct {
	Actor       model.User
	CandidateID int
	Note        string
	Date        time.Time
}

func (Login) Kind() Kind             { return KindLogin }
func (Logout) Kind() Kind            { return KindLogout }
func (AddUser) Kind() Kind           { return KindAddUser }
func (AddJob) Kind() Kind            { return KindAddJob }
func (UpdateJob) Kind() Kind         { return KindUpdateJob }
func (DeleteJob) Kind() Kind         { return KindDeleteJob }
func (ToggleJobActive) Kind() Kind   { return KindToggleJobActive }
func (AddCandidate) Kind() Kind      { return KindAddCandidate }
func (ReferApplicant) Kind() Kind    { return KindReferApplicant }
func (UpdateCandidate) Kind() Kind   { return KindUpdateCandidate }
func (AppendContactNote) Kind() Kind { return KindAppendContactNote }

// actorOf はコマンドの実行者を返す。Login/Logoutは0を返す。
func actorOf(cmd Command) int {
	switch c := cmd.(type) {
	case AddUser:
		return c.Actor.ID
	case AddJob:
		return c.Actor.ID
	case UpdateJob:
		return c.Actor.ID
	case DeleteJob:
		return c.Actor.ID
	case ToggleJobActive:
		return c.Actor.ID
	case AddCandidate:
		return c.Actor.ID
	case ReferApplicant:
		return c.Actor.ID
	case UpdateCandidate:
		return c.Actor.ID
	case AppendContactNote:
		return c.Actor.ID
	}
	return 0
}
