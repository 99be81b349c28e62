package model

import "time"

// CandidateStatus は候補者の選考ステージを表す。
// 既知の値以外も受け付けるオープンな列挙として扱う。
type CandidateStatus string

const (
	StatusReferred    CandidateStatus = "referred"
	StatusContacted   CandidateStatus = "contacted"
	StatusScreening   CandidateStatus = "screening"
	StatusShortlisted CandidateStatus = "shortlisted"
	StatusInterview   CandidateStatus = "interview"
	StatusOffer       CandidateStatus = "offer"
	StatusRejected    CandidateStatus = "rejected"
	StatusHired       CandidateStatus = "hired"
)

// DefaultCandidateStatus は紹介直後の候補者に設定されるステージ。
const DefaultCandidateStatus = StatusReferred

// CanonicalStatuses は標準のステージ一覧を選考順に返す。
func CanonicalStatuses() []CandidateStatus {
	return []CandidateStatus{
		StatusReferred, StatusContacted, StatusScreening, StatusShortlisted,
		StatusInterview, StatusOffer, StatusRejected, StatusHired,
	}
}

// IsCanonical は標準ステージに含まれるかを返す。
func (s CandidateStatus) IsCanonical() bool {
	for _, c := range CanonicalStatuses() {
		if s == c {
			return true
		}
	}
	return false
}

// ContactNote は候補者への連絡履歴の1件を表す。
type ContactNote struct {
	Date time.Time `json:"date" yaml:"date"`
	Note string    `json:"note" yaml:"note"`
}

// Candidate は求人に紹介された候補者を表す。
// RecruiterIDは紹介時点の Job.RecruiterID のスナップショットであり、
// その後の割り当て変更には追従しない。
type Candidate struct {
	ID             int             `json:"id" yaml:"id"`
	Name           string          `json:"name" yaml:"name"`
	Email          string          `json:"email" yaml:"email"`
	Phone          string          `json:"phone" yaml:"phone"`
	Resume         string          `json:"resume,omitempty" yaml:"resume,omitempty"`
	Notes          string          `json:"notes" yaml:"notes"`
	AppliedForJob  int             `json:"appliedForJob" yaml:"appliedForJob"`
	ReferredBy     int             `json:"referredBy" yaml:"referredBy"`
	RecruiterID    *int            `json:"recruiterId,omitempty" yaml:"recruiterId,omitempty"`
	Status         CandidateStatus `json:"status" yaml:"status"`
	ContactHistory []ContactNote   `json:"contactHistory" yaml:"contactHistory"`
	CreatedAt      time.Time       `json:"createdAt" yaml:"createdAt,omitempty"`
	UpdatedAt      time.Time       `json:"updatedAt" yaml:"updatedAt,omitempty"`
}

// Clone はスライスとポインタを複製したCandidateを返す。
func (c Candidate) Clone() Candidate {
	out := c
	if c.ContactHistory != nil {
		out.ContactHistory = make([]ContactNote, len(c.ContactHistory))
		copy(out.ContactHistory, c.ContactHistory)
	}
	if c.RecruiterID != nil {
		id := *c.RecruiterID
		out.RecruiterID = &id
	}
	return out
}

// AttributedTo は紹介時点で指定リクルーターに紐付いていたかを返す。
func (c Candidate) AttributedTo(recruiterID int) bool {
	return c.RecruiterID != nil && *c.RecruiterID == recruiterID
}

// CandidatePatch は候補者の部分更新内容を表す。nilのフィールドは変更しない。
// 連絡履歴はAppendContactNoteでのみ追記できる。
type CandidatePatch struct {
	Name       *string          `json:"name,omitempty"`
	Email      *string          `json:"email,omitempty"`
	Phone      *string          `json:"phone,omitempty"`
	Resume     *string          `json:"resume,omitempty"`
	Notes      *string          `json:"notes,omitempty"`
	Status     *CandidateStatus `json:"status,omitempty"`
	ReferredBy *int             `json:"referredBy,omitempty"`
}
