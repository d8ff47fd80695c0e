package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"realm-tracker/internal/config"
	"realm-tracker/internal/domain"

	"github.com/rs/zerolog"
)

func testSummary() *domain.IngestionSummary {
	return &domain.IngestionSummary{
		Snapshot: domain.Snapshot{
			ID:        "snap1",
			KingdomID: "671",
			Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			Filename:  "671_20250101_0000utc.xlsx",
		},
		PlayersProcessed:    3,
		ChangesDetected:     domain.ChangeCounts{NameChanges: 1},
		PlayersMarkedAsLeft: 1,
	}
}

func TestNotifyIngestion(t *testing.T) {
	events := make(chan IngestionEvent, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		body, _ := io.ReadAll(r.Body)
		var event IngestionEvent
		if err := json.Unmarshal(body, &event); err != nil {
			t.Errorf("decode event: %v", err)
		}
		events <- event
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewWebhookClient(&config.Config{WebhookURL: srv.URL}, zerolog.Nop())
	if !client.Enabled() {
		t.Fatal("client with a URL should be enabled")
	}

	if err := client.NotifyIngestion(context.Background(), testSummary()); err != nil {
		t.Fatalf("NotifyIngestion() error = %v", err)
	}

	event := <-events
	if event.Event != "snapshot.ingested" || event.SnapshotID != "snap1" || event.KingdomID != "671" {
		t.Errorf("event = %+v", event)
	}
	if event.PlayersProcessed != 3 || event.NameChanges != 1 || event.PlayersMarkedAsLeft != 1 {
		t.Errorf("event counts = %+v", event)
	}
	if !strings.Contains(event.Content, "Kingdom 671") {
		t.Errorf("content = %q", event.Content)
	}
}

func TestNotifyIngestionErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewWebhookClient(&config.Config{WebhookURL: srv.URL}, zerolog.Nop())
	if err := client.NotifyIngestion(context.Background(), testSummary()); err == nil {
		t.Error("NotifyIngestion() should fail on a 502")
	}
}

func TestNotifyIngestionDisabled(t *testing.T) {
	client := NewWebhookClient(&config.Config{}, zerolog.Nop())
	if client.Enabled() {
		t.Fatal("client without a URL should be disabled")
	}
	if err := client.NotifyIngestion(context.Background(), testSummary()); err != nil {
		t.Errorf("disabled NotifyIngestion() error = %v", err)
	}

	var nilClient *WebhookClient
	if nilClient.Enabled() {
		t.Error("nil client should be disabled")
	}
}
