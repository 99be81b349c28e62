package model

import "time"

// Job は求人を表す。作成したマネージャーが所有する。
// JSONタグはブラウザ保存形式（jobsData）と互換にしている。
type Job struct {
	ID          int       `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	Skills      []string  `json:"skills" yaml:"skills"`
	Location    string    `json:"location" yaml:"location"`
	Salary      string    `json:"salary" yaml:"salary"` // 表示用の自由文字列
	CreatedBy   int       `json:"createdBy" yaml:"createdBy"`
	RecruiterID *int      `json:"recruiterId,omitempty" yaml:"recruiterId,omitempty"`
	IsActive    bool      `json:"isActive" yaml:"isActive"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt,omitempty"`
}

// Clone はスライスとポインタを複製したJobを返す。
func (j Job) Clone() Job {
	c := j
	if j.Skills != nil {
		c.Skills = make([]string, len(j.Skills))
		copy(c.Skills, j.Skills)
	}
	if j.RecruiterID != nil {
		id := *j.RecruiterID
		c.RecruiterID = &id
	}
	return c
}

// AssignedTo は指定リクルーターが割り当てられているかを返す。
func (j Job) AssignedTo(recruiterID int) bool {
	return j.RecruiterID != nil && *j.RecruiterID == recruiterID
}

// JobPatch は求人の部分更新内容を表す。nilのフィールドは変更しない。
// RecruiterIDに0を指定すると割り当てを解除する。
type JobPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Skills      *[]string `json:"skills,omitempty"`
	Location    *string   `json:"location,omitempty"`
	Salary      *string   `json:"salary,omitempty"`
	RecruiterID *int      `json:"recruiterId,omitempty"`
	IsActive    *bool     `json:"isActive,omitempty"`
}

// Empty は更新対象のフィールドが1つもないかを返す。
func (p JobPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Skills == nil &&
		p.Location == nil && p.Salary == nil && p.RecruiterID == nil && p.IsActive == nil
}
