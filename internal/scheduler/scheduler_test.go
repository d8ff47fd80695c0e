package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"realm-tracker/internal/api"
	"realm-tracker/internal/config"
	"realm-tracker/internal/db"
	"realm-tracker/internal/parser"
	"realm-tracker/internal/repository"
	"realm-tracker/internal/service"
	"realm-tracker/internal/testutil"

	"github.com/rs/zerolog"
)

func newTestScheduler(t *testing.T, cfg *config.Config) *Scheduler {
	t.Helper()

	sqlDB := testutil.OpenDB(t)
	queries := db.New(sqlDB)
	logger := zerolog.Nop()
	p := parser.New(logger)

	ingest := service.NewIngestionService(
		cfg,
		p,
		repository.NewTransactor(sqlDB, logger),
		repository.NewUploadRepository(sqlDB, queries, logger),
		repository.NewSnapshotRepository(sqlDB, queries, logger),
		repository.NewPlayerRepository(sqlDB, queries, logger),
		repository.NewChangeRepository(sqlDB, queries, logger),
		service.NewChangeDetector(cfg, logger),
		api.NewWebhookClient(cfg, logger),
		logger,
	)
	return NewScheduler(cfg, service.NewImportService(ingest, p, logger), logger)
}

func TestRunNowFilesExports(t *testing.T) {
	cfg := testutil.Config()
	cfg.InboxDir = t.TempDir()
	s := newTestScheduler(t, cfg)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop(context.Background())

	good := "671_20250101_0000utc.xlsx"
	bad := "latest-roster.xlsx"
	data := testutil.XLSX(t, "671", testutil.Rows(testutil.Player{LordID: "1", Name: "Alice"}))
	for _, name := range []string{good, bad} {
		if err := os.WriteFile(filepath.Join(cfg.InboxDir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(cfg.InboxDir, "README.txt"), []byte("drop exports here"), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := s.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow() error = %v", err)
	}
	if n != 2 {
		t.Errorf("RunNow() handled %d files, want 2", n)
	}

	assertExists(t, filepath.Join(cfg.InboxDir, processedDir, good))
	assertExists(t, filepath.Join(cfg.InboxDir, failedDir, bad))
	assertExists(t, filepath.Join(cfg.InboxDir, "README.txt"))
	if _, err := os.Stat(filepath.Join(cfg.InboxDir, good)); !os.IsNotExist(err) {
		t.Errorf("%s should have left the inbox", good)
	}

	n, err = s.RunNow(context.Background())
	if err != nil || n != 0 {
		t.Errorf("RunNow() on an empty inbox = %d, %v", n, err)
	}
}

func TestStartWithoutInbox(t *testing.T) {
	s := newTestScheduler(t, testutil.Config())

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.Stop(context.Background())
}

func TestStartInvalidSchedule(t *testing.T) {
	cfg := testutil.Config()
	cfg.InboxDir = t.TempDir()
	cfg.InboxSchedule = "every now and then"
	s := newTestScheduler(t, cfg)

	if err := s.Start(); err == nil {
		t.Error("Start() with an invalid schedule should fail")
	}
}

func assertExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected %s: %v", path, err)
	}
}

func TestStopCancelsScheduledRuns(t *testing.T) {
	cfg := testutil.Config()
	cfg.InboxDir = t.TempDir()
	s := newTestScheduler(t, cfg)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.Stop(context.Background())

	if s.ctx.Err() == nil {
		t.Fatal("Stop() should cancel the context of scheduled runs")
	}

	data := testutil.XLSX(t, "671", testutil.Rows(testutil.Player{LordID: "1", Name: "Alice"}))
	if err := os.WriteFile(filepath.Join(cfg.InboxDir, "671_20250101_0000utc.xlsx"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RunNow(s.ctx); err == nil {
		t.Error("RunNow() after Stop should report cancellation")
	}
}
