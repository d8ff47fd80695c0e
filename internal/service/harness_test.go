package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"realm-tracker/internal/api"
	"realm-tracker/internal/config"
	"realm-tracker/internal/db"
	"realm-tracker/internal/domain"
	"realm-tracker/internal/parser"
	"realm-tracker/internal/repository"
	"realm-tracker/internal/testutil"

	"github.com/rs/zerolog"
)

type harness struct {
	sqlDB    *sql.DB
	ingest   *IngestionService
	importer *ImportService
	roster   *RosterService
}

func newHarness(t *testing.T, cfg *config.Config) harness {
	t.Helper()

	sqlDB := testutil.OpenDB(t)
	queries := db.New(sqlDB)
	logger := zerolog.Nop()

	uploads := repository.NewUploadRepository(sqlDB, queries, logger)
	snapshots := repository.NewSnapshotRepository(sqlDB, queries, logger)
	players := repository.NewPlayerRepository(sqlDB, queries, logger)
	changes := repository.NewChangeRepository(sqlDB, queries, logger)
	p := parser.New(logger)

	ingest := NewIngestionService(
		cfg,
		p,
		repository.NewTransactor(sqlDB, logger),
		uploads,
		snapshots,
		players,
		changes,
		NewChangeDetector(cfg, logger),
		api.NewWebhookClient(cfg, logger),
		logger,
	)

	return harness{
		sqlDB:    sqlDB,
		ingest:   ingest,
		importer: NewImportService(ingest, p, logger),
		roster:   NewRosterService(snapshots, players, changes, uploads, logger),
	}
}

func exportName(ts time.Time) string {
	return kingdomExportName("671", ts)
}

func kingdomExportName(kingdom string, ts time.Time) string {
	return kingdom + "_" + ts.Format("20060102_1504") + "utc.xlsx"
}

func (h harness) upload(t *testing.T, ts time.Time, players ...testutil.Player) *domain.IngestionSummary {
	t.Helper()
	return h.uploadKingdom(t, "671", ts, players...)
}

func (h harness) uploadKingdom(t *testing.T, kingdom string, ts time.Time, players ...testutil.Player) *domain.IngestionSummary {
	t.Helper()

	name := kingdomExportName(kingdom, ts)
	summary, err := h.ingest.Ingest(context.Background(), Upload{
		Filename: name,
		Data:     testutil.XLSX(t, kingdom, testutil.Rows(players...)),
	})
	if err != nil {
		t.Fatalf("Ingest(%s) error = %v", name, err)
	}
	return summary
}

// failWrites installs a trigger that aborts every matching statement, the way
// a constraint violation or I/O error would surface from the store.
func (h harness) failWrites(t *testing.T, name, event, lordID string) {
	t.Helper()

	stmt := fmt.Sprintf(`CREATE TRIGGER %s %s WHEN NEW.lord_id = '%s' BEGIN SELECT RAISE(ABORT, 'injected failure'); END`,
		name, event, lordID)
	if _, err := h.sqlDB.Exec(stmt); err != nil {
		t.Fatalf("create trigger %s: %v", name, err)
	}
}

func (h harness) player(t *testing.T, lordID string) *domain.Player {
	t.Helper()

	p, err := h.roster.Player(context.Background(), lordID)
	if err != nil {
		t.Fatalf("Player(%s) error = %v", lordID, err)
	}
	return p
}

func (h harness) uploadStatuses(t *testing.T) map[string]string {
	t.Helper()

	rows, err := h.sqlDB.Query(`SELECT filename, status FROM uploads`)
	if err != nil {
		t.Fatalf("query uploads: %v", err)
	}
	defer rows.Close()

	statuses := make(map[string]string)
	for rows.Next() {
		var filename, status string
		if err := rows.Scan(&filename, &status); err != nil {
			t.Fatalf("scan upload: %v", err)
		}
		statuses[filename] = status
	}
	return statuses
}
