package projection

import (
	"github.com/hitoshi/jobboard/internal/auth"
	"github.com/hitoshi/jobboard/internal/metrics"
	"github.com/hitoshi/jobboard/internal/model"
)

// Reader はプロジェクションの入力となるコレクションを返す。
// 各メソッドは呼び出し時点のコピーを返すこと。store.Store が満たす。
type Reader interface {
	Users() []model.User
	Jobs() []model.Job
	Candidates() []model.Candidate
}

// Service は閲覧者のロールに応じて見える範囲を絞り込んだビューを返す。
//
//	admin:     すべて
//	manager:   自分の求人、その応募者、自分が紹介した候補者
//	recruiter: すべての求人、自分が紹介したか紐付いている候補者
type Service struct {
	reader  Reader
	metrics metrics.MetricsCollector
}

// NewService はServiceを生成する。collectorがnilの場合はメトリクスを記録しない。
func NewService(reader Reader, collector metrics.MetricsCollector) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{reader: reader, metrics: collector}
}

// Jobs は閲覧者が見られる求人を返す。
func (s *Service) Jobs(viewer model.User) []model.Job {
	s.metrics.RecordProjection("jobs")
	return visibleJobs(viewer, s.reader.Jobs())
}

// Job は閲覧者が見られる求人を1件返す。
func (s *Service) Job(viewer model.User, id int) (model.Job, error) {
	s.metrics.RecordProjection("job")
	for _, j := range visibleJobs(viewer, s.reader.Jobs()) {
		if j.ID == id {
			return j, nil
		}
	}
	return model.Job{}, model.NewJobNotFoundError(id)
}

// MyJobs はマネージャーの作成した求人、リクルーターに割り当てられた求人を返す。
func (s *Service) MyJobs(viewer model.User) []model.Job {
	s.metrics.RecordProjection("my_jobs")
	jobs := s.reader.Jobs()
	switch viewer.Role {
	case model.RoleManager:
		return JobsByManager(jobs, viewer.ID)
	case model.RoleRecruiter:
		return JobsByRecruiter(jobs, viewer.ID)
	default:
		return jobs
	}
}

// Candidates は閲覧者が見られる候補者をqueryで絞り込んで返す。
func (s *Service) Candidates(viewer model.User, query string) []CandidateView {
	s.metrics.RecordProjection("candidates")
	jobs := s.reader.Jobs()
	scope := visibleCandidates(viewer, s.reader.Candidates(), jobs)
	return WithJobs(SearchCandidates(scope, query), jobs)
}

// Candidate は閲覧者が見られる候補者を1件返す。
func (s *Service) Candidate(viewer model.User, id int) (CandidateView, error) {
	s.metrics.RecordProjection("candidate")
	jobs := s.reader.Jobs()
	for _, c := range visibleCandidates(viewer, s.reader.Candidates(), jobs) {
		if c.ID == id {
			return WithJobs([]model.Candidate{c}, jobs)[0], nil
		}
	}
	return CandidateView{}, model.NewCandidateNotFoundError(id)
}

// CandidatesForJob は求人の応募者のうち閲覧者が見られるものをqueryで絞り込んで返す。
// マネージャーは自分の求人であれば全応募者を見られる。
func (s *Service) CandidatesForJob(viewer model.User, jobID int, query string) ([]model.Candidate, error) {
	s.metrics.RecordProjection("candidates_for_job")
	jobs := s.reader.Jobs()
	if _, err := findVisibleJob(viewer, jobs, jobID); err != nil {
		return nil, err
	}
	scope := CandidatesForJob(visibleCandidates(viewer, s.reader.Candidates(), jobs), jobID)
	return SearchCandidates(scope, query), nil
}

// MyReferrals は閲覧者が紹介した候補者を返す。
func (s *Service) MyReferrals(viewer model.User) []CandidateView {
	s.metrics.RecordProjection("my_referrals")
	return WithJobs(CandidatesReferredBy(s.reader.Candidates(), viewer.ID), s.reader.Jobs())
}

// JobsWithApplicants はリクルーター画面用に、各求人と閲覧者が見られる応募者を返す。
func (s *Service) JobsWithApplicants(viewer model.User) []JobWithApplicants {
	s.metrics.RecordProjection("jobs_with_applicants")
	jobs := s.reader.Jobs()
	return JobsWithApplicants(visibleJobs(viewer, jobs), visibleCandidates(viewer, s.reader.Candidates(), jobs))
}

// AdminSummary は管理者向けの集計と内訳。
type AdminSummary struct {
	Counts     AdminCounts         `json:"counts"`
	Managers   []ManagerOverview   `json:"managers"`
	Recruiters []RecruiterOverview `json:"recruiters"`
}

// ManagerOverview はマネージャーごとの求人と応募者数。
type ManagerOverview struct {
	User model.User          `json:"user"`
	Jobs []ManagerJobSummary `json:"jobs"`
}

// RecruiterOverview はリクルーターごとの紹介数と紐付け数。
type RecruiterOverview struct {
	User       model.User `json:"user"`
	Referrals  int        `json:"referrals"`
	Attributed int        `json:"attributed"`
}

// AdminSummary は管理者向けの集計を返す。管理者以外はFORBIDDEN。
func (s *Service) AdminSummary(viewer model.User) (AdminSummary, error) {
	if err := auth.Authorize(viewer, auth.ActionViewAdminSummary, auth.Resource{}); err != nil {
		return AdminSummary{}, err
	}
	s.metrics.RecordProjection("admin_summary")

	users, jobs, candidates := s.reader.Users(), s.reader.Jobs(), s.reader.Candidates()
	summary := AdminSummary{
		Counts:     CountForAdmin(users, jobs, candidates),
		Managers:   []ManagerOverview{},
		Recruiters: []RecruiterOverview{},
	}
	for _, m := range UsersByRole(users, model.RoleManager) {
		summary.Managers = append(summary.Managers, ManagerOverview{
			User: m,
			Jobs: ManagerJobSummaries(jobs, candidates, m.ID),
		})
	}
	for _, r := range UsersByRole(users, model.RoleRecruiter) {
		summary.Recruiters = append(summary.Recruiters, RecruiterOverview{
			User:       r,
			Referrals:  len(CandidatesReferredBy(candidates, r.ID)),
			Attributed: len(CandidatesByRecruiter(candidates, r.ID)),
		})
	}
	return summary, nil
}

// Users は管理者向けのユーザー一覧。roleが空の場合は全ユーザーを返す。
func (s *Service) Users(viewer model.User, role model.Role) ([]model.User, error) {
	if err := auth.Authorize(viewer, auth.ActionViewAdminSummary, auth.Resource{}); err != nil {
		return nil, err
	}
	s.metrics.RecordProjection("users")
	users := s.reader.Users()
	if role == "" {
		return users, nil
	}
	return UsersByRole(users, role), nil
}

func visibleJobs(viewer model.User, jobs []model.Job) []model.Job {
	switch viewer.Role {
	case model.RoleAdmin, model.RoleRecruiter:
		return jobs
	case model.RoleManager:
		return JobsByManager(jobs, viewer.ID)
	default:
		return []model.Job{}
	}
}

func findVisibleJob(viewer model.User, jobs []model.Job, id int) (model.Job, error) {
	for _, j := range visibleJobs(viewer, jobs) {
		if j.ID == id {
			return j, nil
		}
	}
	return model.Job{}, model.NewJobNotFoundError(id)
}

// visibleCandidates は閲覧者が見られる候補者を返す。
// 応募先が削除済みの候補者は、紹介者・紐付きリクルーター・管理者にのみ見える。
func visibleCandidates(viewer model.User, candidates []model.Candidate, jobs []model.Job) []model.Candidate {
	switch viewer.Role {
	case model.RoleAdmin:
		return candidates
	case model.RoleManager:
		own := make(map[int]bool)
		for _, j := range JobsByManager(jobs, viewer.ID) {
			own[j.ID] = true
		}
		return filter(candidates, func(c model.Candidate) bool {
			return own[c.AppliedForJob] || c.ReferredBy == viewer.ID
		})
	case model.RoleRecruiter:
		return filter(candidates, func(c model.Candidate) bool {
			return c.ReferredBy == viewer.ID || c.AttributedTo(viewer.ID)
		})
	default:
		return []model.Candidate{}
	}
}
