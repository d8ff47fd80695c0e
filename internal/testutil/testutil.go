// Package testutil builds throwaway databases and roster exports for tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"slices"
	"testing"

	"realm-tracker/internal/config"
	"realm-tracker/internal/constants"
	"realm-tracker/internal/database"
	"realm-tracker/internal/parser"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// OpenDB returns a migrated SQLite database living in the test's temp dir.
func OpenDB(t testing.TB) *sql.DB {
	t.Helper()

	sqlDB, err := database.Open(filepath.Join(t.TempDir(), "realm.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return sqlDB
}

// Config returns the defaults the binaries start with, minus side effects.
func Config() *config.Config {
	return &config.Config{
		DBPath:              ":memory:",
		ServerPort:          "0",
		LogLevel:            "disabled",
		BatchSize:           constants.DBBatchSize,
		DepartureCutoffDays: constants.DefaultDepartureCutoffDays,
		MaxUploadBytes:      constants.DefaultMaxUploadBytes,
		InboxSchedule:       constants.DefaultInboxSchedule,
	}
}

// Player describes one export row; unset counters are left blank.
type Player struct {
	LordID      string
	Name        string
	AllianceID  string
	AllianceTag string
	Power       string
}

// Header is the first row of every export.
func Header() []any {
	header := make([]any, parser.ColumnCount)
	for i := range header {
		header[i] = "col" + string(rune('A'+i%26))
	}
	header[0], header[1] = "Lord ID", "Name"
	return header
}

// Row renders p in the export's column layout.
func (p Player) Row() []any {
	row := make([]any, parser.ColumnCount)
	row[0] = p.LordID
	row[1] = p.Name
	row[2] = p.AllianceID
	row[3] = p.AllianceTag
	row[7] = p.Power
	return row
}

// Rows prepends the header to the rendered players.
func Rows(players ...Player) [][]any {
	rows := [][]any{Header()}
	for _, p := range players {
		rows = append(rows, p.Row())
	}
	return rows
}

// XLSX writes rows into a single-sheet workbook named sheet and returns its bytes.
func XLSX(t testing.TB, sheet string, rows [][]any) []byte {
	t.Helper()
	return Workbook(t, map[string][][]any{sheet: rows}, sheet)
}

// Workbook writes one sheet per entry, in the order given by names.
func Workbook(t testing.TB, sheets map[string][][]any, names ...string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if len(names) == 0 {
		t.Fatalf("workbook needs at least one sheet")
	}

	const defaultSheet = "Sheet1"
	hasDefault := slices.Contains(names, defaultSheet)
	for i, name := range names {
		switch {
		case name == defaultSheet:
		case i == 0 && !hasDefault:
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		default:
			if _, err := f.NewSheet(name); err != nil {
				t.Fatalf("new sheet %q: %v", name, err)
			}
		}

		for r, row := range sheets[name] {
			cellRef, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetSheetRow(name, cellRef, &row); err != nil {
				t.Fatalf("write row %d: %v", r+1, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}
