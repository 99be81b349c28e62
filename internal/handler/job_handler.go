package handler

import (
	"net/http"

	"github.com/hitoshi/jobboard/internal/model"
	"github.com/hitoshi/jobboard/internal/mutation"
	"github.com/hitoshi/jobboard/internal/projection"
)

// BoardReader は射影層の読み取りインターフェース。projection.Service が満たす。
type BoardReader interface {
	Jobs(viewer model.User) []model.Job
	Job(viewer model.User, id int) (model.Job, error)
	MyJobs(viewer model.User) []model.Job
	Candidates(viewer model.User, query string) []projection.CandidateView
	Candidate(viewer model.User, id int) (projection.CandidateView, error)
	CandidatesForJob(viewer model.User, jobID int, query string) ([]model.Candidate, error)
	MyReferrals(viewer model.User) []projection.CandidateView
	JobsWithApplicants(viewer model.User) []projection.JobWithApplicants
	AdminSummary(viewer model.User) (projection.AdminSummary, error)
	Users(viewer model.User, role model.Role) ([]model.User, error)
}

// JobHandler は求人のHTTPハンドラー。
type JobHandler struct {
	mutations MutationDispatcher
	board     BoardReader
}

// NewJobHandler はJobHandlerを生成する。
func NewJobHandler(mutations MutationDispatcher, board BoardReader) *JobHandler {
	return &JobHandler{mutations: mutations, board: board}
}

// createJobRequest は求人作成リクエストのボディ。
// skillsは配列の代わりにカンマ区切り文字列（skillsText）でも受け付ける。
type createJobRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
	SkillsText  string   `json:"skillsText"`
	Location    string   `json:"location"`
	Salary      string   `json:"salary"`
	CreatedBy   int      `json:"createdBy"`
	RecruiterID *int     `json:"recruiterId"`
	IsActive    *bool    `json:"isActive"`
}

func jobBody(res mutation.Result) any { return res.Job }

// List は閲覧者が見られる求人一覧を返す。
// GET /api/jobs
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.board.Jobs(user))
}

// Get は求人を1件返す。
// GET /api/jobs/{id}
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	job, err := h.board.Job(user, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Create は求人を作成する。
// POST /api/jobs
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req createJobRequest
	if err := decodeBody(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	skills := req.Skills
	if skills == nil && req.SkillsText != "" {
		skills = mutation.SplitSkills(req.SkillsText)
	}

	res := h.mutations.Dispatch(r.Context(), mutation.AddJob{
		Actor:       user,
		Title:       req.Title,
		Description: req.Description,
		Skills:      skills,
		Location:    req.Location,
		Salary:      req.Salary,
		CreatedBy:   req.CreatedBy,
		RecruiterID: req.RecruiterID,
		IsActive:    req.IsActive,
	})
	writeResult(w, http.StatusCreated, res, jobBody)
}

// Update は求人を部分更新する。recruiterIdに0を指定すると割り当てを解除する。
// PATCH /api/jobs/{id}
func (h *JobHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	var patch model.JobPatch
	if err := decodeBody(r, &patch); err != nil {
		handleServiceError(w, err)
		return
	}

	res := h.mutations.Dispatch(r.Context(), mutation.UpdateJob{Actor: user, ID: id, Patch: patch})
	writeResult(w, http.StatusOK, res, jobBody)
}

// Delete は求人を削除する。応募済みの候補者は残る。
// DELETE /api/jobs/{id}
func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	res := h.mutations.Dispatch(r.Context(), mutation.DeleteJob{Actor: user, ID: id})
	if !res.OK() {
		handleServiceError(w, res.Err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Toggle は求人の公開状態を反転する。
// POST /api/jobs/{id}/toggle
func (h *JobHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	res := h.mutations.Dispatch(r.Context(), mutation.ToggleJobActive{Actor: user, ID: id})
	writeResult(w, http.StatusOK, res, jobBody)
}

// Candidates は求人の応募者を返す。qで名前・メール・電話番号を絞り込む。
// GET /api/jobs/{id}/candidates
func (h *JobHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	candidates, err := h.board.CandidatesForJob(user, id, r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, candidates)
}

// MyJobs はマネージャーの作成した求人、リクルーターに割り当てられた求人を返す。
// GET /api/me/jobs
func (h *JobHandler) MyJobs(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.board.MyJobs(user))
}

// WithApplicants は各求人と応募者の一覧を返す。
// GET /api/me/applicants
func (h *JobHandler) WithApplicants(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.board.JobsWithApplicants(user))
}
