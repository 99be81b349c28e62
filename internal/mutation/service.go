// Package mutation はエンティティストアを変更する操作を提供する。
//
// 操作は動詞ごとのメソッドとして公開し、Dispatchで型付きコマンドとしても受け付ける。
// すべての操作はストアのトランザクション内で検証と書き込みを行うため、
// 失敗した操作はストアを一切変更しない。
package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/jobboard/internal/auth"
	"github.com/hitoshi/jobboard/internal/metrics"
	"github.com/hitoshi/jobboard/internal/model"
	"github.com/hitoshi/jobboard/internal/security"
	"github.com/hitoshi/jobboard/internal/store"
)

// SessionIssuer はログイン成功時のセッション発行と破棄を行う。
type SessionIssuer interface {
	Issue(ctx context.Context, userID int) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// Service はミューテーション層のサービス。
type Service struct {
	store     *store.Store
	resolver  auth.Resolver
	sessions  SessionIssuer
	sanitizer security.TextSanitizerService
	metrics   metrics.MetricsCollector
}

// NewService はServiceを生成する。collectorがnilの場合はメトリクスを記録しない。
func NewService(
	st *store.Store,
	resolver auth.Resolver,
	sessions SessionIssuer,
	sanitizer security.TextSanitizerService,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		store:     st,
		resolver:  resolver,
		sessions:  sessions,
		sanitizer: sanitizer,
		metrics:   collector,
	}
}

// Login はメールアドレスからロールを解決し、セッションを発行する。
// directoryポリシーで未登録のメールアドレスの場合はユーザーを自動作成する。
func (s *Service) Login(ctx context.Context, email string) (*model.User, *model.Session, error) {
	var user model.User
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		res, err := s.resolver.Resolve(tx, email)
		if err != nil {
			return err
		}
		if res.Known {
			user = res.User
			return nil
		}
		user = tx.InsertUser(model.User{
			Name:  emailLocalPart(res.Email),
			Email: res.Email,
			Role:  res.Role,
		})
		slog.Info("user provisioned on first login",
			slog.Int("user_id", user.ID),
			slog.String("role", string(user.Role)),
		)
		return nil
	})
	s.metrics.RecordLogin(s.resolver.Policy(), err == nil)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to issue session: %w", err)
	}
	return &user, session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return model.NewUnauthorizedError()
	}
	return s.sessions.Logout(ctx, sessionID)
}

// AddUser はマネージャーまたはリクルーターを追加する。
// 管理者はこの操作では作成できない。メールアドレスは大文字小文字を無視して一意。
func (s *Service) AddUser(ctx context.Context, actor model.User, name, email string, role model.Role) (model.User, error) {
	var created model.User
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		if _, err := currentActor(tx, actor, auth.ActionAddUser, auth.Resource{}); err != nil {
			return err
		}

		e, err := normalizeEmail("email", email)
		if err != nil {
			return err
		}
		if role != model.RoleManager && role != model.RoleRecruiter {
			return model.NewInvalidFieldError("role", "manager または recruiter を指定してください")
		}
		if _, dup := tx.UserByEmail(e); dup {
			return model.NewDuplicateEmailError(e)
		}

		name = strings.TrimSpace(name)
		if name == "" {
			name = emailLocalPart(e)
		}
		created = tx.InsertUser(model.User{Name: name, Email: e, Role: role})
		return nil
	})
	return created, err
}

// AddJob は求人を作成し、一覧の先頭に追加する。
func (s *Service) AddJob(ctx context.Context, cmd AddJob) (model.Job, error) {
	var created model.Job
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		actor, err := currentActor(tx, cmd.Actor, auth.ActionAddJob, auth.Resource{})
		if err != nil {
			return err
		}

		title := strings.TrimSpace(cmd.Title)
		if title == "" {
			return model.NewMissingFieldsError("title")
		}

		createdBy := cmd.CreatedBy
		if createdBy == 0 {
			createdBy = actor.ID
		}
		if actor.Role != model.RoleAdmin && createdBy != actor.ID {
			return model.NewForbiddenError("他のマネージャー名義で求人を作成することはできません")
		}
		if err := requireUser(tx, "createdBy", createdBy, model.RoleManager, model.RoleAdmin); err != nil {
			return err
		}

		recruiterID, err := resolveRecruiter(tx, cmd.RecruiterID)
		if err != nil {
			return err
		}

		description, err := s.plainText("description", cmd.Description)
		if err != nil {
			return err
		}

		isActive := true
		if cmd.IsActive != nil {
			isActive = *cmd.IsActive
		}

		created = tx.InsertJob(model.Job{
			Title:       title,
			Description: description,
			Skills:      NormalizeSkills(cmd.Skills),
			Location:    strings.TrimSpace(cmd.Location),
			Salary:      strings.TrimSpace(cmd.Salary),
			CreatedBy:   createdBy,
			RecruiterID: recruiterID,
			IsActive:    isActive,
		})
		return nil
	})
	return created, err
}

// UpdateJob は求人のフィールドを部分的に置き換える。並び順は変わらない。
func (s *Service) UpdateJob(ctx context.Context, actor model.User, id int, patch model.JobPatch) (model.Job, error) {
	var updated model.Job
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		job, err := s.loadJobFor(tx, actor, id, auth.ActionUpdateJob)
		if err != nil {
			return err
		}

		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return model.NewMissingFieldsError("title")
			}
			job.Title = title
		}
		if patch.Description != nil {
			description, err := s.plainText("description", *patch.Description)
			if err != nil {
				return err
			}
			job.Description = description
		}
		if patch.Skills != nil {
			job.Skills = NormalizeSkills(*patch.Skills)
		}
		if patch.Location != nil {
			job.Location = strings.TrimSpace(*patch.Location)
		}
		if patch.Salary != nil {
			job.Salary = strings.TrimSpace(*patch.Salary)
		}
		if patch.RecruiterID != nil {
			recruiterID, err := resolveRecruiter(tx, patch.RecruiterID)
			if err != nil {
				return err
			}
			job.RecruiterID = recruiterID
		}
		if patch.IsActive != nil {
			job.IsActive = *patch.IsActive
		}

		updated = job
		if patch.Empty() {
			return nil
		}
		return putJob(tx, job)
	})
	return updated, err
}

// DeleteJob は求人を削除する。応募済みの候補者は残り、求人は参照先不明として扱われる。
func (s *Service) DeleteJob(ctx context.Context, actor model.User, id int) (model.Job, error) {
	var deleted model.Job
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		job, err := s.loadJobFor(tx, actor, id, auth.ActionDeleteJob)
		if err != nil {
			return err
		}
		if err := tx.DeleteJob(id); err != nil {
			return storeError(err, model.NewJobNotFoundError(id))
		}
		deleted = job
		return nil
	})
	return deleted, err
}

// ToggleJobActive は求人の公開状態を反転する。
func (s *Service) ToggleJobActive(ctx context.Context, actor model.User, id int) (model.Job, error) {
	var updated model.Job
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		job, err := s.loadJobFor(tx, actor, id, auth.ActionToggleJobActive)
		if err != nil {
			return err
		}
		job.IsActive = !job.IsActive
		updated = job
		return putJob(tx, job)
	})
	return updated, err
}

// AddCandidate は候補者を求人に紹介し、一覧の先頭に追加する。
// RecruiterIDは紹介時点の求人の割り当てをコピーし、その後は追従しない。
func (s *Service) AddCandidate(ctx context.Context, cmd AddCandidate) (model.Candidate, error) {
	var created model.Candidate
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		actor, err := currentActor(tx, cmd.Actor, auth.ActionAddCandidate, auth.Resource{})
		if err != nil {
			return err
		}

		name := strings.TrimSpace(cmd.Name)
		phone := strings.TrimSpace(cmd.Phone)
		var missing []string
		if name == "" {
			missing = append(missing, "name")
		}
		if strings.TrimSpace(cmd.Email) == "" {
			missing = append(missing, "email")
		}
		if phone == "" {
			missing = append(missing, "phone")
		}
		if cmd.AppliedForJob == 0 {
			missing = append(missing, "appliedForJob")
		}
		if len(missing) > 0 {
			return model.NewMissingFieldsError(missing...)
		}

		email, err := normalizeEmail("email", cmd.Email)
		if err != nil {
			return err
		}
		resume, ok := s.sanitizer.SanitizeURL(cmd.Resume)
		if !ok {
			return model.NewInvalidFieldError("resume", "http(s)のURLを指定してください")
		}

		job, ok := tx.Job(cmd.AppliedForJob)
		if !ok {
			return model.NewInvalidReferenceError("appliedForJob", cmd.AppliedForJob)
		}

		referredBy := cmd.ReferredBy
		if referredBy == 0 {
			referredBy = actor.ID
		}
		if referredBy != actor.ID {
			return model.NewForbiddenError("他のユーザー名義で候補者を紹介することはできません")
		}

		status := normalizeStatus(cmd.Status)
		if status == "" {
			status = model.DefaultCandidateStatus
		}

		now := tx.Now()
		history := make([]model.ContactNote, 0, len(cmd.ContactHistory))
		for _, n := range cmd.ContactHistory {
			note, err := s.plainText("contactHistory", strings.TrimSpace(n.Note))
			if err != nil {
				return err
			}
			if note == "" {
				continue
			}
			date := n.Date
			if date.IsZero() {
				date = now
			}
			history = append(history, model.ContactNote{Date: date, Note: note})
		}

		notes, err := s.plainText("notes", cmd.Notes)
		if err != nil {
			return err
		}

		c := model.Candidate{
			Name:           name,
			Email:          email,
			Phone:          phone,
			Resume:         resume,
			Notes:          notes,
			AppliedForJob:  job.ID,
			ReferredBy:     referredBy,
			Status:         status,
			ContactHistory: history,
		}
		if job.RecruiterID != nil {
			id := *job.RecruiterID
			c.RecruiterID = &id
		}
		created = tx.InsertCandidate(c)
		return nil
	})
	return created, err
}

// ReferApplicant はAddCandidateの別名。
func (s *Service) ReferApplicant(ctx context.Context, cmd ReferApplicant) (model.Candidate, error) {
	return s.AddCandidate(ctx, AddCandidate(cmd))
}

// UpdateCandidate は候補者のフィールドを部分的に置き換え、updatedAtを更新する。
// 連絡履歴は変更しない。
func (s *Service) UpdateCandidate(ctx context.Context, actor model.User, id int, patch model.CandidatePatch) (model.Candidate, error) {
	var updated model.Candidate
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		c, current, err := s.loadCandidateFor(tx, actor, id, auth.ActionUpdateCandidate)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return model.NewMissingFieldsError("name")
			}
			c.Name = name
		}
		if patch.Email != nil {
			email, err := normalizeEmail("email", *patch.Email)
			if err != nil {
				return err
			}
			c.Email = email
		}
		if patch.Phone != nil {
			phone := strings.TrimSpace(*patch.Phone)
			if phone == "" {
				return model.NewMissingFieldsError("phone")
			}
			c.Phone = phone
		}
		if patch.Resume != nil {
			resume, ok := s.sanitizer.SanitizeURL(*patch.Resume)
			if !ok {
				return model.NewInvalidFieldError("resume", "http(s)のURLを指定してください")
			}
			c.Resume = resume
		}
		if patch.Notes != nil {
			notes, err := s.plainText("notes", *patch.Notes)
			if err != nil {
				return err
			}
			c.Notes = notes
		}
		if patch.Status != nil {
			status := normalizeStatus(*patch.Status)
			if status == "" {
				return model.NewMissingFieldsError("status")
			}
			c.Status = status
		}
		if patch.ReferredBy != nil {
			if current.Role == model.RoleRecruiter {
				return model.NewForbiddenError("紹介者の付け替え")
			}
			if err := requireUser(tx, "referredBy", *patch.ReferredBy, model.RoleManager, model.RoleRecruiter); err != nil {
				return err
			}
			c.ReferredBy = *patch.ReferredBy
		}

		c.UpdatedAt = laterOf(tx.Now(), c.UpdatedAt)
		updated = c
		return putCandidate(tx, c)
	})
	return updated, err
}

// AppendContactNote は候補者の連絡履歴の末尾に1件追記する。
func (s *Service) AppendContactNote(ctx context.Context, actor model.User, candidateID int, note string, date time.Time) (model.Candidate, error) {
	var updated model.Candidate
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		c, _, err := s.loadCandidateFor(tx, actor, candidateID, auth.ActionAppendContactNote)
		if err != nil {
			return err
		}

		note, err = s.plainText("note", strings.TrimSpace(note))
		if err != nil {
			return err
		}
		if note == "" {
			return model.NewMissingFieldsError("note")
		}
		now := tx.Now()
		if date.IsZero() {
			date = now
		}

		c.ContactHistory = append(c.ContactHistory, model.ContactNote{Date: date, Note: note})
		c.UpdatedAt = laterOf(now, c.UpdatedAt)
		updated = c
		return putCandidate(tx, c)
	})
	return updated, err
}

// plainText は自由入力テキストを入力どおりに返す。
// HTMLタグを含む場合は黙って削らずVALIDATION_ERRORにする。
func (s *Service) plainText(field, raw string) (string, error) {
	text, ok := s.sanitizer.CheckText(raw)
	if !ok {
		return "", model.NewInvalidFieldError(field, "HTMLタグは使用できません")
	}
	return text, nil
}

// loadJobFor は求人を取得し、actorが操作できるか確認する。
func (s *Service) loadJobFor(tx *store.Tx, actor model.User, id int, action auth.Action) (model.Job, error) {
	current, err := currentActor(tx, actor, "", auth.Resource{})
	if err != nil {
		return model.Job{}, err
	}
	job, ok := tx.Job(id)
	if !ok {
		return model.Job{}, model.NewJobNotFoundError(id)
	}
	if err := auth.Authorize(current, action, auth.Resource{Job: &job}); err != nil {
		return model.Job{}, err
	}
	return job, nil
}

// loadCandidateFor は候補者を取得し、actorが操作できるか確認する。
// 応募先の求人が削除済みでも候補者は操作対象になる。
func (s *Service) loadCandidateFor(tx *store.Tx, actor model.User, id int, action auth.Action) (model.Candidate, model.User, error) {
	current, err := currentActor(tx, actor, "", auth.Resource{})
	if err != nil {
		return model.Candidate{}, model.User{}, err
	}
	c, ok := tx.Candidate(id)
	if !ok {
		return model.Candidate{}, model.User{}, model.NewCandidateNotFoundError(id)
	}
	res := auth.Resource{Candidate: &c}
	if job, ok := tx.Job(c.AppliedForJob); ok {
		res.CandidateJob = &job
	}
	if err := auth.Authorize(current, action, res); err != nil {
		return model.Candidate{}, model.User{}, err
	}
	return c, current, nil
}

// currentActor はストア上の最新のユーザーレコードを返す。
// actionが指定されていればロール単位の権限も確認する。
func currentActor(tx *store.Tx, actor model.User, action auth.Action, res auth.Resource) (model.User, error) {
	if actor.ID == 0 {
		return model.User{}, model.NewUnauthorizedError()
	}
	current, ok := tx.User(actor.ID)
	if !ok {
		return model.User{}, model.NewUnauthorizedError()
	}
	if action != "" {
		if err := auth.Authorize(current, action, res); err != nil {
			return model.User{}, err
		}
	}
	return current, nil
}

// requireUser はidが指定ロールのいずれかを持つ既存ユーザーであることを確認する。
func requireUser(tx *store.Tx, field string, id int, roles ...model.Role) error {
	u, ok := tx.User(id)
	if !ok {
		return model.NewInvalidReferenceError(field, id)
	}
	for _, r := range roles {
		if u.Role == r {
			return nil
		}
	}
	return model.NewInvalidReferenceError(field, id)
}

// resolveRecruiter は割り当てリクルーターを検証する。0は割り当て解除を意味する。
func resolveRecruiter(tx *store.Tx, id *int) (*int, error) {
	if id == nil || *id == 0 {
		return nil, nil
	}
	if err := requireUser(tx, "recruiterId", *id, model.RoleRecruiter); err != nil {
		return nil, err
	}
	v := *id
	return &v, nil
}

func putJob(tx *store.Tx, job model.Job) error {
	if err := tx.PutJob(job); err != nil {
		return storeError(err, model.NewJobNotFoundError(job.ID))
	}
	return nil
}

func putCandidate(tx *store.Tx, c model.Candidate) error {
	if err := tx.PutCandidate(c); err != nil {
		return storeError(err, model.NewCandidateNotFoundError(c.ID))
	}
	return nil
}

// storeError はストアのErrNotFoundをドメインエラーに置き換える。
func storeError(err error, notFound *model.APIError) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound
	}
	return err
}
