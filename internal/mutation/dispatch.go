package mutation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/jobboard/internal/model"
)

// Result はDispatchの結果。成功時はErrがnilで、操作に応じたフィールドが設定される。
type Result struct {
	Kind      Kind
	User      *model.User
	Job       *model.Job
	Candidate *model.Candidate
	Session   *model.Session
	Err       *model.APIError
}

// OK は操作が成功したかを返す。
func (r Result) OK() bool {
	return r.Err == nil
}

// Dispatch はコマンドを実行する。panicしてもResultとして返し、呼び出し元には伝播しない。
// 全操作についてログとメトリクスを同じ形式で記録する。
func (s *Service) Dispatch(ctx context.Context, cmd Command) (res Result) {
	start := time.Now()
	res.Kind = cmd.Kind()

	var cause error
	defer func() {
		if r := recover(); r != nil {
			cause = fmt.Errorf("panic in %s: %v", res.Kind, r)
			res = Result{Kind: res.Kind, Err: model.NewInternalError()}
		}
		s.record(ctx, cmd, res, cause, time.Since(start))
	}()

	cause = s.apply(ctx, cmd, &res)
	if cause != nil {
		res = Result{Kind: res.Kind, Err: toAPIError(cause)}
	}
	return res
}

func (s *Service) apply(ctx context.Context, cmd Command, res *Result) error {
	switch c := cmd.(type) {
	case Login:
		user, session, err := s.Login(ctx, c.Email)
		if err != nil {
			return err
		}
		res.User, res.Session = user, session

	case Logout:
		return s.Logout(ctx, c.SessionID)

	case AddUser:
		user, err := s.AddUser(ctx, c.Actor, c.Name, c.Email, c.Role)
		if err != nil {
			return err
		}
		res.User = &user

	case AddJob:
		return setJob(res)(s.AddJob(ctx, c))
	case UpdateJob:
		return setJob(res)(s.UpdateJob(ctx, c.Actor, c.ID, c.Patch))
	case DeleteJob:
		return setJob(res)(s.DeleteJob(ctx, c.Actor, c.ID))
	case ToggleJobActive:
		return setJob(res)(s.ToggleJobActive(ctx, c.Actor, c.ID))

	case AddCandidate:
		return setCandidate(res)(s.AddCandidate(ctx, c))
	case ReferApplicant:
		return setCandidate(res)(s.ReferApplicant(ctx, c))
	case UpdateCandidate:
		return setCandidate(res)(s.UpdateCandidate(ctx, c.Actor, c.ID, c.Patch))
	case AppendContactNote:
		return setCandidate(res)(s.AppendContactNote(ctx, c.Actor, c.CandidateID, c.Note, c.Date))

	default:
		return fmt.Errorf("unknown command %T", cmd)
	}
	return nil
}

func setJob(res *Result) func(model.Job, error) error {
	return func(j model.Job, err error) error {
		if err != nil {
			return err
		}
		res.Job = &j
		return nil
	}
}

func setCandidate(res *Result) func(model.Candidate, error) error {
	return func(c model.Candidate, err error) error {
		if err != nil {
			return err
		}
		res.Candidate = &c
		return nil
	}
}

// record は操作結果をログとメトリクスに記録する。
// ドメインエラーはWarn、内部エラーはErrorで出力する。
func (s *Service) record(ctx context.Context, cmd Command, res Result, cause error, elapsed time.Duration) {
	outcome := "ok"
	if res.Err != nil {
		outcome = res.Err.Code
	}
	s.metrics.RecordMutation(string(res.Kind), outcome)
	s.metrics.RecordMutationLatency(string(res.Kind), elapsed)

	attrs := []slog.Attr{
		slog.String("kind", string(res.Kind)),
		slog.Int("actor_id", actorOf(cmd)),
		slog.String("outcome", outcome),
		slog.Float64("duration_ms", float64(elapsed.Microseconds())/1000),
	}
	switch {
	case res.Err == nil:
		slog.LogAttrs(ctx, slog.LevelInfo, "mutation applied", attrs...)
	case res.Err.Code == model.ErrCodeInternal:
		attrs = append(attrs, slog.String("error", cause.Error()))
		slog.LogAttrs(ctx, slog.LevelError, "mutation failed", attrs...)
	default:
		attrs = append(attrs, slog.String("error_code", res.Err.Code))
		slog.LogAttrs(ctx, slog.LevelWarn, "mutation rejected", attrs...)
	}
}

// toAPIError はAPIError以外のエラーをINTERNAL_ERRORに変換する。
func toAPIError(err error) *model.APIError {
	if apiErr, ok := model.AsAPIError(err); ok {
		return apiErr
	}
	return model.NewInternalError()
}
