package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/store"
)

func TestViperForCmdEnv(t *testing.T) {
	t.Setenv("INTERVIEWER_LLM_MODEL", "llama3.2")
	t.Setenv("INTERVIEWER_SESSION_TTL", "2h")

	cmd := serveCmd()
	v := viperForCmd(cmd)
	if got := v.GetString("llm-model"); got != "llama3.2" {
		t.Errorf("llm-model = %q, want env override", got)
	}
	if got := v.GetDuration("session-ttl"); got != 2*time.Hour {
		t.Errorf("session-ttl = %v, want 2h", got)
	}
	if got := v.GetString("store"); got != "memory" {
		t.Errorf("store default = %q", got)
	}
}

func TestExportSQLite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sessions.db")
	outPath := filepath.Join(dir, "export.json")

	db, err := store.NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	now := time.Now()
	sess := model.Session{ID: "s1", JobRole: "SRE", ExperienceYears: 3, CreatedAt: now, UpdatedAt: now}
	for i := 0; i < model.QuestionCount; i++ {
		sess.Records = append(sess.Records, model.Record{Question: "Q"})
	}
	sess.Records[0].Answer = "A"
	sess.Records[0].Feedback = &model.Feedback{Score: 6}
	sess.CurrentIndex = 1
	if err := db.Create(context.Background(), sess); err != nil {
		t.Fatalf("Create: %v", err)
	}
	db.Close()

	root := rootCmd()
	root.SetArgs([]string{"export", "--store", "sqlite", "--db", dbPath, "-o", outPath, "--log-level", "error"})
	if err := root.Execute(); err != nil {
		t.Fatalf("export: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var export model.SessionExport
	if err := json.Unmarshal(data, &export); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if export.Count != 1 || export.Store != "sqlite" || len(export.Sessions) != 1 {
		t.Fatalf("export = %+v", export)
	}
	got := export.Sessions[0]
	if got.SessionID != "s1" || got.Status != model.StatusInProgress || got.CompletedQuestions != 1 || got.AverageScore != 6 {
		t.Errorf("session = %+v", got)
	}
}

func TestExportRejectsMemoryStore(t *testing.T) {
	root := rootCmd()
	root.SetArgs([]string{"export", "--log-level", "error"})
	root.SilenceUsage = true
	root.SilenceErrors = true
	if err := root.Execute(); err == nil {
		t.Error("export from the memory store should fail")
	}
}

func TestLoadPromptsDir(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"questions.tmpl": "Q {{.JobRole}}",
		"evaluate.tmpl":  "E {{.Question}}",
		"report.tmpl":    "R {{.Transcript}}",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	set, err := loadPrompts(dir, false)
	if err != nil {
		t.Fatalf("loadPrompts: %v", err)
	}
	if set.Structured() {
		t.Error("Structured() = true for a marker prompt set")
	}
	got, err := set.Questions("SRE", 2)
	if err != nil || got != "Q SRE" {
		t.Errorf("Questions = %q, %v", got, err)
	}

	structured, err := loadPrompts("", true)
	if err != nil {
		t.Fatalf("loadPrompts structured: %v", err)
	}
	if !structured.Structured() {
		t.Error("Structured() = false for a JSON prompt set")
	}

	if _, err := loadPrompts(filepath.Join(dir, "missing"), false); err == nil {
		t.Error("loadPrompts should fail for a missing directory")
	}
}

func TestStartSweeperWaitsForExit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	wait := startSweeper(ctx, store.NewMemory(), time.Hour, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait did not return after cancel")
	}
}

func TestStartSweeperDisabled(t *testing.T) {
	tests := []struct {
		name     string
		ttl      time.Duration
		interval time.Duration
	}{
		{"zero interval", time.Hour, 0},
		{"negative interval", time.Hour, -time.Minute},
		{"no ttl", 0, time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// ctx is never canceled, so a running sweeper would block wait.
			wait := startSweeper(context.Background(), store.NewMemory(), tt.ttl, tt.interval)
			done := make(chan struct{})
			go func() {
				wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("sweeper started although it is disabled")
			}
		})
	}
}
