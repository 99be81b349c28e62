package app

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hitoshi/jobboard/internal/store"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestRun_Export_WritesSeededBoard(t *testing.T) {
	clearEnv(t)
	out := filepath.Join(t.TempDir(), "board.json")

	var buf bytes.Buffer
	if err := Run(&buf, []string{"export", out}); err != nil {
		t.Fatalf("Run(export) returned error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("export file not written: %v", err)
	}
	var snap store.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(snap.Users) != 5 || len(snap.Jobs) != 5 || len(snap.Candidates) != 7 {
		t.Errorf("export = %d users, %d jobs, %d candidates", len(snap.Users), len(snap.Jobs), len(snap.Candidates))
	}
	if snap.Sequences.Job != 6 {
		t.Errorf("next job id = %d, want 6", snap.Sequences.Job)
	}
}

func TestRun_Migrate_RequiresDatabaseURL(t *testing.T) {
	clearEnv(t)

	var buf bytes.Buffer
	if err := Run(&buf, []string{"migrate"}); err == nil {
		t.Fatal("Run(migrate) without DATABASE_URL should return error")
	}
}

func TestRun_WithInvalidEnv_ReturnsError(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROLE_POLICY", "open")

	var buf bytes.Buffer
	if err := Run(&buf, []string{"serve"}); err == nil {
		t.Fatal("Run with invalid ROLE_POLICY should return error")
	}
}

func TestRun_Healthcheck_FailsWithoutServer(t *testing.T) {
	clearEnv(t)
	// 使われていない可能性が高いポート
	t.Setenv("SERVER_PORT", "1")

	var buf bytes.Buffer
	if err := Run(&buf, []string{"healthcheck"}); err == nil {
		t.Fatal("healthcheck should fail when no server is listening")
	}
}
