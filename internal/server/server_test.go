package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"realm-tracker/internal/api"
	"realm-tracker/internal/config"
	"realm-tracker/internal/db"
	"realm-tracker/internal/domain"
	"realm-tracker/internal/parser"
	"realm-tracker/internal/repository"
	"realm-tracker/internal/service"
	"realm-tracker/internal/testutil"

	"github.com/rs/zerolog"
)

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()

	sqlDB := testutil.OpenDB(t)
	queries := db.New(sqlDB)
	logger := zerolog.Nop()

	uploads := repository.NewUploadRepository(sqlDB, queries, logger)
	snapshots := repository.NewSnapshotRepository(sqlDB, queries, logger)
	players := repository.NewPlayerRepository(sqlDB, queries, logger)
	changes := repository.NewChangeRepository(sqlDB, queries, logger)

	ingest := service.NewIngestionService(
		cfg,
		parser.New(logger),
		repository.NewTransactor(sqlDB, logger),
		uploads, snapshots, players, changes,
		service.NewChangeDetector(cfg, logger),
		api.NewWebhookClient(cfg, logger),
		logger,
	)
	roster := service.NewRosterService(snapshots, players, changes, uploads, logger)

	srv := httptest.NewServer(NewRosterServer(cfg, ingest, roster, logger).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func postExport(t *testing.T, srv *httptest.Server, filename string, data []byte, season string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if season != "" {
		if err := mw.WriteField("season", season); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(srv.URL+"/api/uploads", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST /api/uploads: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, srv *httptest.Server, path string, wantStatus int, out any) {
	t.Helper()

	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s status = %d, want %d", path, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
}

func TestUploadAndQuery(t *testing.T) {
	srv := newTestServer(t, testutil.Config())

	first := testutil.XLSX(t, "671", testutil.Rows(
		testutil.Player{LordID: "2", Name: "Bob", AllianceTag: "ABC", AllianceID: "1", Power: "100"},
		testutil.Player{LordID: "4", Name: "Dave", AllianceTag: "ABC", AllianceID: "1", Power: "100"},
	))
	resp := postExport(t, srv, "671_20241210_0000utc.xlsx", first, "s1")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first upload status = %d", resp.StatusCode)
	}

	second := testutil.XLSX(t, "671", testutil.Rows(
		testutil.Player{LordID: "1", Name: "Alice", AllianceTag: "XYZ", AllianceID: "2", Power: "123456789012345678901234567890"},
		testutil.Player{LordID: "2", Name: "Rob", AllianceTag: "XYZ", AllianceID: "2", Power: "200"},
	))
	resp = postExport(t, srv, "671_20250101_0000utc.xlsx", second, "s1")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("second upload status = %d", resp.StatusCode)
	}

	var summary domain.IngestionSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.PlayersProcessed != 2 || summary.ChangesDetected.NameChanges != 1 ||
		summary.ChangesDetected.AllianceChanges != 1 || summary.PlayersMarkedAsLeft != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Snapshot.KingdomID != "671" || summary.Snapshot.SeasonID != "s1" {
		t.Errorf("snapshot = %+v", summary.Snapshot)
	}

	var latest domain.Snapshot
	getJSON(t, srv, "/api/snapshots/latest?season=s1", http.StatusOK, &latest)
	if latest.ID != summary.Snapshot.ID {
		t.Errorf("latest snapshot = %s, want %s", latest.ID, summary.Snapshot.ID)
	}

	var list struct {
		Snapshots []domain.Snapshot `json:"snapshots"`
	}
	getJSON(t, srv, "/api/snapshots?limit=1", http.StatusOK, &list)
	if len(list.Snapshots) != 1 {
		t.Errorf("snapshots with limit=1 = %d", len(list.Snapshots))
	}

	var players struct {
		Players []domain.PlayerSnapshot `json:"players"`
	}
	getJSON(t, srv, fmt.Sprintf("/api/snapshots/%s/players?alliance=XYZ&search=Ali", summary.Snapshot.ID), http.StatusOK, &players)
	if len(players.Players) != 1 || players.Players[0].Power.String() != "123456789012345678901234567890" {
		t.Errorf("snapshot players = %+v", players.Players)
	}

	var player domain.Player
	getJSON(t, srv, "/api/players/4", http.StatusOK, &player)
	if !player.HasLeftRealm {
		t.Errorf("player 4 = %+v, want left", player)
	}

	var history struct {
		History []domain.PlayerSnapshot `json:"history"`
	}
	getJSON(t, srv, "/api/players/2/history", http.StatusOK, &history)
	if len(history.History) != 2 || history.History[0].Name != "Bob" {
		t.Errorf("history = %+v", history.History)
	}

	var names struct {
		Changes []domain.NameChange `json:"changes"`
	}
	getJSON(t, srv, "/api/changes/names?from=2024-12-31&search=Rob", http.StatusOK, &names)
	if len(names.Changes) != 1 || names.Changes[0].OldName != "Bob" {
		t.Errorf("name changes = %+v", names.Changes)
	}
	getJSON(t, srv, "/api/changes/names?to=2024-12-31", http.StatusOK, &names)
	if len(names.Changes) != 0 {
		t.Errorf("name changes before the rename = %+v", names.Changes)
	}

	var alliances struct {
		Changes []domain.AllianceChange `json:"changes"`
	}
	getJSON(t, srv, "/api/changes/alliances?from=2025-01-01T00:00:00Z", http.StatusOK, &alliances)
	if len(alliances.Changes) != 1 || alliances.Changes[0].NewAllianceTag != "XYZ" {
		t.Errorf("alliance changes = %+v", alliances.Changes)
	}

	var upload domain.Upload
	getJSON(t, srv, "/api/uploads/"+summary.Snapshot.UploadID, http.StatusOK, &upload)
	if upload.Status != domain.UploadCompleted {
		t.Errorf("upload = %+v", upload)
	}
}

func TestUploadErrors(t *testing.T) {
	cfg := testutil.Config()
	cfg.MaxUploadBytes = 64 << 10
	srv := newTestServer(t, cfg)

	valid := testutil.XLSX(t, "671", testutil.Rows(testutil.Player{LordID: "1", Name: "A"}))

	tests := []struct {
		name     string
		filename string
		data     []byte
		want     int
	}{
		{"bad filename", "export.xlsx", valid, http.StatusBadRequest},
		{"no players", "671_20250101_0000utc.xlsx", testutil.XLSX(t, "671", testutil.Rows()), http.StatusBadRequest},
		{"too large", "671_20250101_0000utc.xlsx", bytes.Repeat([]byte("x"), 96<<10), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postExport(t, srv, tt.filename, tt.data, "")
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body["error"] == "" {
				t.Errorf("error body = %v, %v", body, err)
			}
		})
	}

	resp, err := http.Post(srv.URL+"/api/uploads", "text/plain", bytes.NewReader([]byte("hi")))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("non-multipart upload status = %d, want 400", resp.StatusCode)
	}
}

func TestQueryErrors(t *testing.T) {
	srv := newTestServer(t, testutil.Config())

	for _, path := range []string{
		"/api/snapshots/latest",
		"/api/snapshots/missing/players",
		"/api/players/404",
		"/api/players/404/history",
		"/api/uploads/missing",
	} {
		getJSON(t, srv, path, http.StatusNotFound, nil)
	}

	for _, path := range []string{
		"/api/snapshots?limit=ten",
		"/api/changes/names?from=yesterday",
		"/api/changes/alliances?limit=x",
	} {
		getJSON(t, srv, path, http.StatusBadRequest, nil)
	}

	var empty struct {
		Changes []domain.NameChange `json:"changes"`
	}
	getJSON(t, srv, "/api/changes/names", http.StatusOK, &empty)
	if empty.Changes == nil || len(empty.Changes) != 0 {
		t.Errorf("empty change list should encode as [], got %v", empty.Changes)
	}

	var health map[string]string
	getJSON(t, srv, "/healthz", http.StatusOK, &health)
	if health["status"] != "ok" {
		t.Errorf("health = %v", health)
	}
}
