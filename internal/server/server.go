package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"realm-tracker/internal/config"
	"realm-tracker/internal/constants"
	"realm-tracker/internal/domain"
	"realm-tracker/internal/service"

	"github.com/rs/zerolog"
)

type RosterServer struct {
	ingestSvc      *service.IngestionService
	rosterSvc      *service.RosterService
	maxUploadBytes int64
	logger         zerolog.Logger
}

func NewRosterServer(cfg *config.Config, ingestSvc *service.IngestionService, rosterSvc *service.RosterService, logger zerolog.Logger) *RosterServer {
	return &RosterServer{
		ingestSvc:      ingestSvc,
		rosterSvc:      rosterSvc,
		maxUploadBytes: cfg.MaxUploadBytes,
		logger:         logger,
	}
}

func (s *RosterServer) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.Health)
	mux.HandleFunc("POST /api/uploads", s.CreateUpload)
	mux.HandleFunc("GET /api/uploads/{id}", s.GetUpload)
	mux.HandleFunc("GET /api/snapshots", s.ListSnapshots)
	mux.HandleFunc("GET /api/snapshots/latest", s.LatestSnapshot)
	mux.HandleFunc("GET /api/snapshots/{id}/players", s.SnapshotPlayers)
	mux.HandleFunc("GET /api/players/{lordId}", s.GetPlayer)
	mux.HandleFunc("GET /api/players/{lordId}/history", s.PlayerHistory)
	mux.HandleFunc("GET /api/changes/names", s.NameChanges)
	mux.HandleFunc("GET /api/changes/alliances", s.AllianceChanges)
	return mux
}

func (s *RosterServer) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateUpload accepts a multipart form with the export in field "file" and an
// optional "season".
func (s *RosterServer) CreateUpload(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.IngestTimeout)
	defer cancel()

	summary, err := s.ingestSvc.Ingest(ctx, service.Upload{
		Filename: header.Filename,
		Data:     data,
		SeasonID: r.FormValue("season"),
	})
	if err != nil {
		log.Warn().Err(err).Str("filename", header.Filename).Msg("upload failed")
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, summary)
}

func (s *RosterServer) GetUpload(w http.ResponseWriter, r *http.Request) {
	upload, err := s.rosterSvc.Upload(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, upload)
}

func (s *RosterServer) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snapshots, err := s.rosterSvc.ListSnapshots(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": nonNil(snapshots)})
}

func (s *RosterServer) LatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.rosterSvc.LatestSnapshot(r.Context(), r.URL.Query().Get("season"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *RosterServer) SnapshotPlayers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	players, err := s.rosterSvc.SnapshotPlayers(r.Context(), r.PathValue("id"), domain.PlayerSnapshotFilter{
		AllianceTag: q.Get("alliance"),
		Search:      q.Get("search"),
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"players": nonNil(players)})
}

func (s *RosterServer) GetPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := s.rosterSvc.Player(r.Context(), r.PathValue("lordId"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (s *RosterServer) PlayerHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.rosterSvc.PlayerHistory(r.Context(), r.PathValue("lordId"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": nonNil(history)})
}

func (s *RosterServer) NameChanges(w http.ResponseWriter, r *http.Request) {
	filter, err := changeFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	changes, err := s.rosterSvc.NameChanges(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": nonNil(changes)})
}

func (s *RosterServer) AllianceChanges(w http.ResponseWriter, r *http.Request) {
	filter, err := changeFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	changes, err := s.rosterSvc.AllianceChanges(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": nonNil(changes)})
}

func (s *RosterServer) writeServiceError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Message)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func changeFilter(r *http.Request) (domain.ChangeFilter, error) {
	q := r.URL.Query()
	filter := domain.ChangeFilter{
		Search: q.Get("search"),
		LordID: q.Get("lordId"),
	}

	var err error
	if filter.From, err = queryTime(r, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = queryTime(r, "to"); err != nil {
		return filter, err
	}
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		return filter, err
	}
	return filter, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}

// queryTime accepts RFC 3339 or a bare YYYY-MM-DD date (UTC midnight).
func queryTime(r *http.Request, key string) (*time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid %s %q, expected RFC 3339 or YYYY-MM-DD", key, v)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
