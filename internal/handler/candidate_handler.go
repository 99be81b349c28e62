package handler

import (
	"net/http"
	"time"

	"github.com/hitoshi/jobboard/internal/model"
	"github.com/hitoshi/jobboard/internal/mutation"
)

// CandidateHandler は候補者のHTTPハンドラー。
type CandidateHandler struct {
	mutations MutationDispatcher
	board     BoardReader
}

// NewCandidateHandler はCandidateHandlerを生成する。
func NewCandidateHandler(mutations MutationDispatcher, board BoardReader) *CandidateHandler {
	return &CandidateHandler{mutations: mutations, board: board}
}

type createCandidateRequest struct {
	Name           string                `json:"name"`
	Email          string                `json:"email"`
	Phone          string                `json:"phone"`
	Resume         string                `json:"resume"`
	Notes          string                `json:"notes"`
	AppliedForJob  int                   `json:"appliedForJob"`
	ReferredBy     int                   `json:"referredBy"`
	Status         model.CandidateStatus `json:"status"`
	ContactHistory []model.ContactNote   `json:"contactHistory"`
}

type contactNoteRequest struct {
	Note string    `json:"note"`
	Date time.Time `json:"date"`
}

func candidateBody(res mutation.Result) any { return res.Candidate }

// List は閲覧者が見られる候補者一覧を返す。qで名前・メール・電話番号を絞り込む。
// GET /api/candidates
func (h *CandidateHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.board.Candidates(user, r.URL.Query().Get("q")))
}

// Get は候補者を1件返す。
// GET /api/candidates/{id}
func (h *CandidateHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	c, err := h.board.Candidate(user, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Create は候補者を登録する。リクルーターからの登録は紹介として扱う。
// POST /api/candidates
func (h *CandidateHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req createCandidateRequest
	if err := decodeBody(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	cmd := mutation.AddCandidate{
		Actor:          user,
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Resume:         req.Resume,
		Notes:          req.Notes,
		AppliedForJob:  req.AppliedForJob,
		ReferredBy:     req.ReferredBy,
		Status:         req.Status,
		ContactHistory: req.ContactHistory,
	}

	var res mutation.Result
	if user.Role == model.RoleRecruiter {
		res = h.mutations.Dispatch(r.Context(), mutation.ReferApplicant(cmd))
	} else {
		res = h.mutations.Dispatch(r.Context(), cmd)
	}
	writeResult(w, http.StatusCreated, res, candidateBody)
}

// Update は候補者を部分更新する。連絡履歴はnotesエンドポイントで追記する。
// PATCH /api/candidates/{id}
func (h *CandidateHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	var patch model.CandidatePatch
	if err := decodeBody(r, &patch); err != nil {
		handleServiceError(w, err)
		return
	}

	res := h.mutations.Dispatch(r.Context(), mutation.UpdateCandidate{Actor: user, ID: id, Patch: patch})
	writeResult(w, http.StatusOK, res, candidateBody)
}

// AppendNote は連絡履歴に1件追記する。dateを省略すると現在時刻になる。
// POST /api/candidates/{id}/notes
func (h *CandidateHandler) AppendNote(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	var req contactNoteRequest
	if err := decodeBody(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	res := h.mutations.Dispatch(r.Context(), mutation.AppendContactNote{
		Actor:       user,
		CandidateID: id,
		Note:        req.Note,
		Date:        req.Date,
	})
	writeResult(w, http.StatusCreated, res, candidateBody)
}

// MyReferrals は閲覧者が紹介した候補者を返す。
// GET /api/me/referrals
func (h *CandidateHandler) MyReferrals(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.board.MyReferrals(user))
}
