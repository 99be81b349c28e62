package store

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/jobboard/internal/model"
)

// DefaultSeed はデモ用の初期データを返す。
// 管理者1名、マネージャー2名、リクルーター2名と、求人5件・候補者7件を含む。
func DefaultSeed(now time.Time) Snapshot {
	users := []model.User{
		{ID: 1, Name: "Admin User", Email: "admin@company.com", Role: model.RoleAdmin, CreatedAt: now},
		{ID: 2, Name: "Maya Kapoor", Email: "manager@company.com", Role: model.RoleManager, CreatedAt: now},
		{ID: 3, Name: "Raj Singh", Email: "manager2@company.com", Role: model.RoleManager, CreatedAt: now},
		{ID: 4, Name: "Sahil Rao", Email: "recruiter@company.com", Role: model.RoleRecruiter, CreatedAt: now},
		{ID: 5, Name: "Karan", Email: "recruiter2@company.com", Role: model.RoleRecruiter, CreatedAt: now},
	}

	job := func(id int, title, desc string, skills []string, salary, location string, createdBy int) model.Job {
		return model.Job{
			ID: id, Title: title, Description: desc, Skills: skills,
			Salary: salary, Location: location, CreatedBy: createdBy,
			IsActive: true, CreatedAt: now,
		}
	}
	jobs := []model.Job{
		job(1, "Frontend Engineer", "React + Tailwind", []string{"React", "Tailwind"}, "₹10-15 LPA", "Bengaluru", 2),
		job(2, "Backend Engineer", "Node.js APIs", []string{"Node", "SQL"}, "₹12-18 LPA", "Remote", 2),
		job(3, "React Developer", "Node.js APIs", []string{"Node", "SQL"}, "₹12-18 LPA", "Remote", 3),
		job(4, "Next js Engineer", "Node.js APIs", []string{"Node", "SQL"}, "₹12-18 LPA", "Remote", 2),
		job(5, "Node Engineer", "Node.js APIs", []string{"Node", "SQL"}, "₹12-18 LPA", "Remote", 2),
	}

	cand := func(id int, name, email, phone, resume, notes string, jobID, referredBy int) model.Candidate {
		return model.Candidate{
			ID: id, Name: name, Email: email, Phone: phone, Resume: resume, Notes: notes,
			AppliedForJob: jobID, ReferredBy: referredBy, Status: model.StatusContacted,
			ContactHistory: []model.ContactNote{{Date: now, Note: "WhatsApp message"}},
			CreatedAt:      now, UpdatedAt: now,
		}
	}
	candidates := []model.Candidate{
		cand(1, "Riya Sen", "riya@example.com", "+91 90000 11111", "https://example.com/riya.pdf", "Strong API skills", 2, 3),
		cand(2, "Neha", "neha@example.com", "+91 90000 11111", "https://example.com/riya.pdf", "Strong API skills", 3, 2),
		cand(3, "Sayan", "sayan@example.com", "+91 11111 11111", "https://example.com/sayan.pdf", "problem solver", 1, 2),
		cand(4, "Radha", "radha@example.com", "+91 22222 22222", "https://example.com/radha.pdf", "react skills", 2, 3),
		cand(5, "Shivam", "sayan@example.com", "+91 11111 11111", "https://example.com/sayan.pdf", "problem solver", 3, 2),
		cand(6, "Radhika", "radhika@example.com", "+91 22222 22222", "https://example.com/radha.pdf", "react skills", 4, 2),
		cand(7, "Vinod", "vinod@example.com", "+91 33333 33333", "https://example.com/vinod.pdf", " API skills", 1, 2),
	}

	return Snapshot{Users: users, Jobs: jobs, Candidates: candidates}
}

// LoadSeedFile はYAML形式のシードファイルを読み込む。
// 形式はSnapshotのyamlタグに従う（users / jobs / candidates）。
// createdAtが省略されたエンティティにはnowを設定する。
func LoadSeedFile(path string, now time.Time) (Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read seed file: %w", err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(b, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse seed yaml: %w", err)
	}

	for i := range snap.Users {
		if !snap.Users[i].Role.Valid() {
			return Snapshot{}, fmt.Errorf("seed user %d has invalid role %q", snap.Users[i].ID, snap.Users[i].Role)
		}
		if snap.Users[i].CreatedAt.IsZero() {
			snap.Users[i].CreatedAt = now
		}
	}
	for i := range snap.Jobs {
		if snap.Jobs[i].CreatedAt.IsZero() {
			snap.Jobs[i].CreatedAt = now
		}
	}
	for i := range snap.Candidates {
		c := &snap.Candidates[i]
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = c.CreatedAt
		}
		if c.Status == "" {
			c.Status = model.DefaultCandidateStatus
		}
		if c.ContactHistory == nil {
			c.ContactHistory = []model.ContactNote{}
		}
	}

	if err := checkUniqueIDs(snap); err != nil {
		return Snapshot{}, fmt.Errorf("invalid seed file: %w", err)
	}
	return snap, nil
}
