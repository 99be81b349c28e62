// Package projection はストアの内容から画面用のビューを導出する。
//
// このパッケージの関数は引数のスライスを読むだけで変更しない。
// 呼び出しごとに再計算し、結果はキャッシュしない。
// 並び順は入力の順序（新しいものが先頭）を保つ。
package projection

import (
	"strings"

	"github.com/hitoshi/jobboard/internal/model"
)

// JobsByManager はmanagerIDが作成した求人を返す。
func JobsByManager(jobs []model.Job, managerID int) []model.Job {
	return filter(jobs, func(j model.Job) bool { return j.CreatedBy == managerID })
}

// JobsByRecruiter はrecruiterIDが割り当てられた求人を返す。
func JobsByRecruiter(jobs []model.Job, recruiterID int) []model.Job {
	return filter(jobs, func(j model.Job) bool { return j.AssignedTo(recruiterID) })
}

// ActiveJobs は公開中の求人を返す。
func ActiveJobs(jobs []model.Job) []model.Job {
	return filter(jobs, func(j model.Job) bool { return j.IsActive })
}

// CandidatesForJob はjobIDに応募した候補者を返す。
func CandidatesForJob(candidates []model.Candidate, jobID int) []model.Candidate {
	return filter(candidates, func(c model.Candidate) bool { return c.AppliedForJob == jobID })
}

// CandidatesReferredBy はuserIDが紹介した候補者を返す。
func CandidatesReferredBy(candidates []model.Candidate, userID int) []model.Candidate {
	return filter(candidates, func(c model.Candidate) bool { return c.ReferredBy == userID })
}

// CandidatesByRecruiter は紹介時点でrecruiterIDに紐付いた候補者を返す。
// 求人の割り当てがその後変わっても結果は変わらない。
func CandidatesByRecruiter(candidates []model.Candidate, recruiterID int) []model.Candidate {
	return filter(candidates, func(c model.Candidate) bool { return c.AttributedTo(recruiterID) })
}

// SearchCandidates はscopeの中から名前・メール・電話番号のいずれかに
// queryを部分一致で含む候補者を返す。大文字小文字は区別しない。
// queryが空白のみの場合はscopeをそのまま返す。
func SearchCandidates(scope []model.Candidate, query string) []model.Candidate {
	q := model.Fold(query)
	if q == "" {
		return scope
	}
	return filter(scope, func(c model.Candidate) bool {
		return strings.Contains(model.Fold(c.Name), q) ||
			strings.Contains(model.Fold(c.Email), q) ||
			strings.Contains(model.Fold(c.Phone), q)
	})
}

// UsersByRole は指定ロールのユーザーを返す。
func UsersByRole(users []model.User, role model.Role) []model.User {
	return filter(users, func(u model.User) bool { return u.Role == role })
}

// AdminCounts は管理者向けの集計値。
// TotalJobsは公開状態に関係なく全求人数を数える。
type AdminCounts struct {
	Managers   int `json:"managers"`
	Recruiters int `json:"recruiters"`
	TotalJobs  int `json:"totalJobs"`
	ActiveJobs int `json:"activeJobs"`
	Candidates int `json:"candidates"`
}

// CountForAdmin は管理者向けの集計値を返す。
func CountForAdmin(users []model.User, jobs []model.Job, candidates []model.Candidate) AdminCounts {
	return AdminCounts{
		Managers:   len(UsersByRole(users, model.RoleManager)),
		Recruiters: len(UsersByRole(users, model.RoleRecruiter)),
		TotalJobs:  len(jobs),
		ActiveJobs: len(ActiveJobs(jobs)),
		Candidates: len(candidates),
	}
}

// CandidateView は候補者と応募先求人の組。
// 応募先が削除済みの場合はJobKnownがfalseになる。
type CandidateView struct {
	model.Candidate
	JobTitle string `json:"jobTitle"`
	JobKnown bool   `json:"jobKnown"`
}

// WithJobs は候補者に応募先求人の情報を付与する。
func WithJobs(candidates []model.Candidate, jobs []model.Job) []CandidateView {
	byID := indexJobs(jobs)
	out := make([]CandidateView, 0, len(candidates))
	for _, c := range candidates {
		v := CandidateView{Candidate: c}
		if j, ok := byID[c.AppliedForJob]; ok {
			v.JobTitle = j.Title
			v.JobKnown = true
		}
		out = append(out, v)
	}
	return out
}

// JobWithApplicants は求人とその応募者の組。
type JobWithApplicants struct {
	Job        model.Job         `json:"job"`
	Applicants []model.Candidate `json:"applicants"`
}

// JobsWithApplicants は各求人に応募者を付与する。応募者のいない求人も含む。
func JobsWithApplicants(jobs []model.Job, candidates []model.Candidate) []JobWithApplicants {
	byJob := groupByJob(candidates)
	out := make([]JobWithApplicants, 0, len(jobs))
	for _, j := range jobs {
		applicants := byJob[j.ID]
		if applicants == nil {
			applicants = []model.Candidate{}
		}
		out = append(out, JobWithApplicants{Job: j, Applicants: applicants})
	}
	return out
}

// ManagerJobSummary はマネージャーの求人ごとの応募者数。
type ManagerJobSummary struct {
	Job            model.Job `json:"job"`
	ApplicantCount int       `json:"applicantCount"`
}

// ManagerJobSummaries はmanagerIDの求人ごとに応募者数を数える。
func ManagerJobSummaries(jobs []model.Job, candidates []model.Candidate, managerID int) []ManagerJobSummary {
	byJob := groupByJob(candidates)
	own := JobsByManager(jobs, managerID)
	out := make([]ManagerJobSummary, 0, len(own))
	for _, j := range own {
		out = append(out, ManagerJobSummary{Job: j, ApplicantCount: len(byJob[j.ID])})
	}
	return out
}

func indexJobs(jobs []model.Job) map[int]model.Job {
	m := make(map[int]model.Job, len(jobs))
	for _, j := range jobs {
		m[j.ID] = j
	}
	return m
}

func groupByJob(candidates []model.Candidate) map[int][]model.Candidate {
	m := make(map[int][]model.Candidate)
	for _, c := range candidates {
		m[c.AppliedForJob] = append(m[c.AppliedForJob], c)
	}
	return m
}

// filter は条件に一致する要素を元の順序で返す。結果は常に非nil。
func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0)
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
