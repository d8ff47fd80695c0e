package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"realm-tracker/internal/domain"
	"realm-tracker/internal/testutil"

	"github.com/google/go-cmp/cmp"
)

func writeExport(t *testing.T, dir, name string, players ...testutil.Player) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, testutil.XLSX(t, "671", testutil.Rows(players...)), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestImportFilesOrdersByTimestamp(t *testing.T) {
	h := newHarness(t, testutil.Config())
	dir := t.TempDir()

	newer := writeExport(t, dir, exportName(jan1),
		testutil.Player{LordID: "1", Name: "Rob"},
	)
	older := writeExport(t, dir, exportName(dec10),
		testutil.Player{LordID: "1", Name: "Bob"},
		testutil.Player{LordID: "2", Name: "Dave"},
	)
	bad := writeExport(t, dir, "roster-final.xlsx", testutil.Player{LordID: "9", Name: "X"})

	paths, err := CollectExports([]string{dir})
	if err != nil {
		t.Fatalf("CollectExports() error = %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("CollectExports() = %v, want 3 files", paths)
	}

	results, err := h.importer.ImportFiles(context.Background(), paths, "", 2)
	if err != nil {
		t.Fatalf("ImportFiles() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}

	var order []string
	for _, res := range results {
		order = append(order, res.Path)
	}
	if diff := cmp.Diff([]string{bad, older, newer}, order); diff != "" {
		t.Fatalf("import order mismatch (-want +got):\n%s", diff)
	}

	if !domain.IsValidation(results[0].Err) {
		t.Errorf("first result = %+v, want rejected %s", results[0], bad)
	}
	if results[1].Err != nil || results[2].Err != nil {
		t.Fatalf("valid exports failed: %v, %v", results[1].Err, results[2].Err)
	}

	latest := results[2].Summary
	if latest.ChangesDetected.NameChanges != 1 || latest.PlayersMarkedAsLeft != 1 {
		t.Errorf("newest summary = %+v", latest)
	}

	statuses := h.uploadStatuses(t)
	if statuses["roster-final.xlsx"] != string(domain.UploadFailed) {
		t.Errorf("rejected export status = %q", statuses["roster-final.xlsx"])
	}
	if statuses[exportName(jan1)] != string(domain.UploadCompleted) {
		t.Errorf("imported export status = %q", statuses[exportName(jan1)])
	}
}

func TestImportFilesMissingFile(t *testing.T) {
	h := newHarness(t, testutil.Config())

	results, err := h.importer.ImportFiles(context.Background(), []string{filepath.Join(t.TempDir(), exportName(jan1))}, "", 0)
	if err != nil {
		t.Fatalf("ImportFiles() error = %v", err)
	}
	if len(results) != 1 || results[0].Err == nil {
		t.Errorf("results = %+v, want one read failure", results)
	}
	if len(h.uploadStatuses(t)) != 0 {
		t.Error("unreadable file should not leave an upload record")
	}
}

func TestImportFilesCancelled(t *testing.T) {
	h := newHarness(t, testutil.Config())
	path := writeExport(t, t.TempDir(), exportName(jan1), testutil.Player{LordID: "1", Name: "A"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := h.importer.ImportFiles(ctx, []string{path}, "", 1); err == nil {
		t.Error("ImportFiles() with a cancelled context should fail")
	}
}

func TestImportFilesTimesOutPerFile(t *testing.T) {
	h := newHarness(t, testutil.Config())
	h.importer.fileTimeout = -time.Second
	dir := t.TempDir()

	paths := []string{
		writeExport(t, dir, exportName(dec10), testutil.Player{LordID: "1", Name: "Bob"}),
		writeExport(t, dir, exportName(jan1), testutil.Player{LordID: "1", Name: "Rob"}),
	}

	results, err := h.importer.ImportFiles(context.Background(), paths, "", 2)
	if err != nil {
		t.Fatalf("ImportFiles() error = %v, a file timeout must not abort the run", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	for _, res := range results {
		if !errors.Is(res.Err, context.DeadlineExceeded) {
			t.Errorf("%s error = %v, want deadline exceeded", filepath.Base(res.Path), res.Err)
		}
	}
}

func TestCollectExports(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.xlsx", "b.XLS", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "processed"), 0o755); err != nil {
		t.Fatal(err)
	}
	explicit := filepath.Join(dir, "notes.txt")

	paths, err := CollectExports([]string{dir, explicit})
	if err != nil {
		t.Fatalf("CollectExports() error = %v", err)
	}
	if len(paths) != 3 {
		t.Errorf("CollectExports() = %v, want two spreadsheets plus the explicit file", paths)
	}

	if _, err := CollectExports([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("CollectExports() on a missing path should fail")
	}
}
