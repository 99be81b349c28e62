package auth

import "github.com/hitoshi/jobboard/internal/model"

// Action は権限判定の対象となる操作。
type Action string

const (
	ActionAddUser           Action = "addUser"
	ActionAddJob            Action = "addJob"
	ActionUpdateJob         Action = "updateJob"
	ActionDeleteJob         Action = "deleteJob"
	ActionToggleJobActive   Action = "toggleJobActive"
	ActionAddCandidate      Action = "addCandidate"
	ActionUpdateCandidate   Action = "updateCandidate"
	ActionAppendContactNote Action = "appendContactNote"
	ActionViewAdminSummary  Action = "viewAdminSummary"
)

// Resource は所有者判定に使う対象エンティティ。
// CandidateJobは候補者の応募先求人で、削除済みの場合はnil。
type Resource struct {
	Job          *model.Job
	Candidate    *model.Candidate
	CandidateJob *model.Job
}

// Authorize はactorがactionを実行できるか判定する。
// 許可されない場合はFORBIDDENのAPIErrorを返す。
func Authorize(actor model.User, action Action, res Resource) error {
	if Permits(actor, action, res) {
		return nil
	}
	return model.NewForbiddenError(string(action))
}

// Permits はactorがactionを実行できるかを返す。
//
//	addUser / viewAdminSummary:       admin
//	addJob:                           admin, manager
//	updateJob / deleteJob / toggle:   admin, 作成者のmanager
//	addCandidate:                     manager, recruiter
//	updateCandidate / contact note:   admin, 自分の求人か自分が紹介したmanager,
//	                                  自分が紹介したか紐付いているrecruiter
func Permits(actor model.User, action Action, res Resource) bool {
	switch action {
	case ActionAddUser, ActionViewAdminSummary:
		return actor.Role == model.RoleAdmin

	case ActionAddJob:
		return actor.Role == model.RoleAdmin || actor.Role == model.RoleManager

	case ActionUpdateJob, ActionDeleteJob, ActionToggleJobActive:
		switch actor.Role {
		case model.RoleAdmin:
			return true
		case model.RoleManager:
			return res.Job != nil && res.Job.CreatedBy == actor.ID
		}
		return false

	case ActionAddCandidate:
		return actor.Role == model.RoleManager || actor.Role == model.RoleRecruiter

	case ActionUpdateCandidate, ActionAppendContactNote:
		c := res.Candidate
		if c == nil {
			return actor.Role == model.RoleAdmin
		}
		switch actor.Role {
		case model.RoleAdmin:
			return true
		case model.RoleManager:
			if c.ReferredBy == actor.ID {
				return true
			}
			return res.CandidateJob != nil && res.CandidateJob.CreatedBy == actor.ID
		case model.RoleRecruiter:
			return c.ReferredBy == actor.ID || c.AttributedTo(actor.ID)
		}
		return false
	}
	return false
}
