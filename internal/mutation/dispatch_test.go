package mutation

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/jobboard/internal/metrics"
	"github.com/hitoshi/jobboard/internal/model"
	"github.com/hitoshi/jobboard/internal/store"
)

type recordedMutation struct {
	kind    string
	outcome string
}

// recordingCollector はRecordMutationの呼び出しを記録する。
type recordingCollector struct {
	metrics.Nop
	mutations []recordedMutation
	logins    map[bool]int
}

func (r *recordingCollector) RecordMutation(kind, outcome string) {
	r.mutations = append(r.mutations, recordedMutation{kind, outcome})
}

func (r *recordingCollector) RecordLogin(_ string, success bool) {
	if r.logins == nil {
		r.logins = make(map[bool]int)
	}
	r.logins[success]++
}

type panickingSanitizer struct{}

func (panickingSanitizer) CheckText(string) (string, bool)   { panic("sanitizer exploded") }
func (panickingSanitizer) SanitizeURL(string) (string, bool) { panic("sanitizer exploded") }

// unknownCommand はDispatchが扱わないコマンド。
type unknownCommand struct{}

func (unknownCommand) Kind() Kind { return Kind("archiveJob") }

func TestDispatch_Success(t *testing.T) {
	f := newFixture(t, nil)
	rec := &recordingCollector{}
	f.svc.metrics = rec

	res := f.svc.Dispatch(context.Background(), AddJob{Actor: maya, Title: "SRE"})

	if !res.OK() {
		t.Fatalf("Dispatch failed: %v", res.Err)
	}
	if res.Kind != KindAddJob {
		t.Errorf("Kind = %q, want %q", res.Kind, KindAddJob)
	}
	if res.Job == nil || res.Job.Title != "SRE" {
		t.Errorf("Job = %+v, want SRE", res.Job)
	}
	if len(rec.mutations) != 1 || rec.mutations[0] != (recordedMutation{"addJob", "ok"}) {
		t.Errorf("mutations = %+v", rec.mutations)
	}
}

func TestDispatch_DomainErrorIsReturnedAsResult(t *testing.T) {
	f := newFixture(t, nil)
	rec := &recordingCollector{}
	f.svc.metrics = rec

	res := f.svc.Dispatch(context.Background(), DeleteJob{Actor: maya, ID: 999})

	if res.OK() {
		t.Fatal("expected failure")
	}
	if res.Err.Code != model.ErrCodeJobNotFound {
		t.Errorf("Code = %q, want %q", res.Err.Code, model.ErrCodeJobNotFound)
	}
	if res.Job != nil {
		t.Error("Job should be nil on failure")
	}
	if rec.mutations[0].outcome != model.ErrCodeJobNotFound {
		t.Errorf("outcome = %q", rec.mutations[0].outcome)
	}
}

func TestDispatch_AllKinds(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	hired := model.StatusHired

	cmds := []Command{
		Login{Email: "admin@company.com"},
		AddUser{Actor: admin, Name: "New", Email: "new@company.com", Role: model.RoleRecruiter},
		AddJob{Actor: maya, Title: "QA"},
		UpdateJob{Actor: maya, ID: 1, Patch: model.JobPatch{Location: strPtr("Pune")}},
		ToggleJobActive{Actor: maya, ID: 1},
		AddCandidate{Actor: sahil, Name: "A", Email: "a@example.com", Phone: "1", AppliedForJob: 1},
		ReferApplicant{Actor: karan, Name: "B", Email: "b@example.com", Phone: "2", AppliedForJob: 1},
		UpdateCandidate{Actor: maya, ID: 3, Patch: model.CandidatePatch{Status: &hired}},
		AppendContactNote{Actor: maya, CandidateID: 3, Note: "offer sent"},
		DeleteJob{Actor: maya, ID: 5},
		Logout{SessionID: "session-for-test"},
	}

	for _, cmd := range cmds {
		res := f.svc.Dispatch(ctx, cmd)
		if !res.OK() {
			t.Errorf("%s failed: %v", cmd.Kind(), res.Err)
		}
		if res.Kind != cmd.Kind() {
			t.Errorf("Kind = %q, want %q", res.Kind, cmd.Kind())
		}
	}
}

func TestDispatch_UnknownCommandIsInternalError(t *testing.T) {
	f := newFixture(t, nil)

	res := f.svc.Dispatch(context.Background(), unknownCommand{})

	if res.OK() || res.Err.Code != model.ErrCodeInternal {
		t.Errorf("Err = %v, want INTERNAL_ERROR", res.Err)
	}
}

func TestDispatch_RecoversPanicAndLeavesStoreUnchanged(t *testing.T) {
	f := newFixture(t, nil)
	rec := &recordingCollector{}
	f.svc.metrics = rec
	f.svc.sanitizer = panickingSanitizer{}
	before := f.store.Export()

	res := f.svc.Dispatch(context.Background(), AddJob{Actor: maya, Title: "boom"})

	if res.OK() || res.Err.Code != model.ErrCodeInternal {
		t.Fatalf("Err = %v, want INTERNAL_ERROR", res.Err)
	}
	if res.Job != nil {
		t.Error("Job should be nil after panic")
	}
	if len(rec.mutations) != 1 || rec.mutations[0].outcome != model.ErrCodeInternal {
		t.Errorf("mutations = %+v", rec.mutations)
	}

	after := f.store.Export()
	if len(after.Jobs) != len(before.Jobs) || after.Sequences != before.Sequences {
		t.Error("store should be unchanged after a panic")
	}

	// ストアは引き続き利用できる
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.store.RunInTransaction(context.Background(), func(tx *store.Tx) error { return nil })
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("store lock was not released after panic")
	}
}

func TestDispatch_LoginRecordsOutcome(t *testing.T) {
	f := newFixture(t, nil)
	rec := &recordingCollector{}
	f.svc.metrics = rec
	ctx := context.Background()

	ok := f.svc.Dispatch(ctx, Login{Email: "manager@company.com"})
	if !ok.OK() || ok.User == nil || ok.Session == nil {
		t.Fatalf("login result = %+v", ok)
	}
	bad := f.svc.Dispatch(ctx, Login{Email: "ghost@company.com"})
	if bad.OK() || bad.Err.Code != model.ErrCodeUnauthorized {
		t.Errorf("Err = %v, want UNAUTHORIZED", bad.Err)
	}

	if rec.logins[true] != 1 || rec.logins[false] != 1 {
		t.Errorf("logins = %v, want one success and one failure", rec.logins)
	}
}
