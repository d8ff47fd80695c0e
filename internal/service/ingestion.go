package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"realm-tracker/internal/api"
	"realm-tracker/internal/config"
	"realm-tracker/internal/domain"
	"realm-tracker/internal/parser"
	"realm-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// Upload is one roster export handed to the ingestion pipeline.
type Upload struct {
	Filename string
	Data     []byte
	SeasonID string
}

type IngestionService struct {
	parser    *parser.Parser
	tx        *repository.Transactor
	uploads   *repository.UploadRepository
	snapshots *repository.SnapshotRepository
	players   *repository.PlayerRepository
	changes   *repository.ChangeRepository
	detector  *ChangeDetector
	notifier  *api.WebhookClient
	batchSize int
	season    string
	locks     *kingdomLocks
	logger    zerolog.Logger
}

func NewIngestionService(
	cfg *config.Config,
	p *parser.Parser,
	tx *repository.Transactor,
	uploads *repository.UploadRepository,
	snapshots *repository.SnapshotRepository,
	players *repository.PlayerRepository,
	changes *repository.ChangeRepository,
	detector *ChangeDetector,
	notifier *api.WebhookClient,
	logger zerolog.Logger,
) *IngestionService {
	return &IngestionService{
		parser:    p,
		tx:        tx,
		uploads:   uploads,
		snapshots: snapshots,
		players:   players,
		changes:   changes,
		detector:  detector,
		notifier:  notifier,
		batchSize: cfg.BatchSize,
		season:    cfg.DefaultSeason,
		locks:     newKingdomLocks(),
		logger:    logger,
	}
}

// Ingest parses and stores one export. Validation problems return a
// *domain.ValidationError, persistence problems a *domain.StorageError.
func (s *IngestionService) Ingest(ctx context.Context, upload Upload) (*domain.IngestionSummary, error) {
	record, err := s.beginUpload(ctx, upload)
	if err != nil {
		return nil, err
	}

	roster, err := s.parser.Parse(upload.Filename, bytes.NewReader(upload.Data))
	if err != nil {
		s.finishUpload(ctx, record.ID, err)
		return nil, err
	}

	return s.ingestRoster(ctx, record, roster, upload.SeasonID)
}

// IngestParsed stores a roster parsed ahead of time, e.g. by the bulk importer.
func (s *IngestionService) IngestParsed(ctx context.Context, upload Upload, roster *domain.ParsedRoster) (*domain.IngestionSummary, error) {
	record, err := s.beginUpload(ctx, upload)
	if err != nil {
		return nil, err
	}
	return s.ingestRoster(ctx, record, roster, upload.SeasonID)
}

// RecordRejected keeps an audit trail for an export that never reached ingestion.
func (s *IngestionService) RecordRejected(ctx context.Context, upload Upload, cause error) error {
	record, err := s.beginUpload(ctx, upload)
	if err != nil {
		return err
	}
	s.finishUpload(ctx, record.ID, cause)
	return nil
}

func (s *IngestionService) beginUpload(ctx context.Context, upload Upload) (*domain.Upload, error) {
	sum := sha256.Sum256(upload.Data)
	record := &domain.Upload{
		Filename:  upload.Filename,
		SizeBytes: int64(len(upload.Data)),
		Checksum:  hex.EncodeToString(sum[:]),
		Status:    domain.UploadProcessing,
	}
	if err := s.uploads.Create(ctx, record); err != nil {
		s.logger.Error().Err(err).Str("filename", upload.Filename).Msg("failed to record upload")
		return nil, err
	}
	return record, nil
}

func (s *IngestionService) finishUpload(ctx context.Context, uploadID string, cause error) {
	status, message := domain.UploadCompleted, ""
	if cause != nil {
		status, message = domain.UploadFailed, cause.Error()
	}
	// the upload row is bookkeeping; its failure must not mask the ingestion result
	if err := s.uploads.Finish(context.WithoutCancel(ctx), uploadID, status, message); err != nil {
		s.logger.Warn().Err(err).Str("upload_id", uploadID).Msg("failed to update upload status")
	}
}

func (s *IngestionService) ingestRoster(ctx context.Context, upload *domain.Upload, roster *domain.ParsedRoster, seasonID string) (*domain.IngestionSummary, error) {
	if seasonID == "" {
		seasonID = s.season
	}

	log := s.logger.With().
		Str("upload_id", upload.ID).
		Str("kingdom", roster.FileInfo.KingdomID).
		Str("filename", roster.FileInfo.Filename).
		Logger()

	unlock := s.locks.lock(roster.FileInfo.KingdomID)
	defer unlock()

	log.Info().
		Int("players", len(roster.Players)).
		Time("timestamp", roster.FileInfo.Timestamp).
		Msg("ingesting roster")

	summary := &domain.IngestionSummary{RowCount: roster.RowCount}

	err := s.tx.RunInTx(ctx, func(tx *sql.Tx) error {
		st := ChangeStores{
			Players:   s.players.WithTx(tx),
			Snapshots: s.snapshots.WithTx(tx),
			Changes:   s.changes.WithTx(tx),
		}

		snapshot := &domain.Snapshot{
			KingdomID:   roster.FileInfo.KingdomID,
			Timestamp:   roster.FileInfo.Timestamp,
			Filename:    roster.FileInfo.Filename,
			UploadID:    upload.ID,
			SeasonID:    seasonID,
			PlayerCount: len(roster.Players),
		}
		if err := st.Snapshots.Create(ctx, snapshot); err != nil {
			return err
		}

		persisted := make([]domain.PlayerRecord, 0, len(roster.Players))
		for start := 0; start < len(roster.Players); start += s.batchSize {
			end := start + s.batchSize
			if end > len(roster.Players) {
				end = len(roster.Players)
			}
			batch := roster.Players[start:end]

			prior := s.detector.Observe(ctx, st, snapshot, batch)

			stored := make([]domain.PlayerRecord, 0, len(batch))
			for _, record := range batch {
				if err := st.Players.UpsertSighting(ctx, snapshot.KingdomID, record.LordID, record.Name, snapshot.Timestamp); err != nil {
					log.Warn().Err(err).Str("lord_id", record.LordID).Msg("failed to upsert player, skipping")
					continue
				}
				stored = append(stored, record)
			}

			counts := s.detector.RecordChanges(ctx, st, snapshot, stored, prior)
			summary.ChangesDetected.NameChanges += counts.NameChanges
			summary.ChangesDetected.AllianceChanges += counts.AllianceChanges

			if err := st.Snapshots.CreatePlayerSnapshots(ctx, snapshot.ID, stored); err != nil {
				return err
			}
			persisted = append(persisted, stored...)

			log.Debug().
				Int("batch_start", start).
				Int("batch_size", len(batch)).
				Int("stored", len(stored)).
				Msg("batch ingested")
		}

		if len(persisted) == 0 {
			return domain.NewStorageError("ingest players", errors.New("no player could be stored"))
		}
		if len(persisted) != snapshot.PlayerCount {
			snapshot.PlayerCount = len(persisted)
			if err := st.Snapshots.SetPlayerCount(ctx, snapshot.ID, snapshot.PlayerCount); err != nil {
				return err
			}
		}

		summary.NamesCorrected = s.detector.CorrectNames(ctx, st.Players, snapshot.Timestamp, persisted)

		presentIDs := make([]string, len(roster.Players))
		for i, p := range roster.Players {
			presentIDs[i] = p.LordID
		}
		marked, err := s.detector.InferDepartures(ctx, st.Players, snapshot.KingdomID, presentIDs, snapshot.Timestamp)
		if err != nil {
			return err
		}

		summary.Snapshot = *snapshot
		summary.PlayersProcessed = len(persisted)
		summary.PlayersMarkedAsLeft = marked
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("ingestion failed, rolled back")
		if !domain.IsValidation(err) && !domain.IsStorage(err) {
			err = domain.NewStorageError("ingest roster", err)
		}
		s.finishUpload(ctx, upload.ID, err)
		return nil, fmt.Errorf("failed to ingest %s: %w", roster.FileInfo.Filename, err)
	}

	s.finishUpload(ctx, upload.ID, nil)

	log.Info().
		Str("snapshot_id", summary.Snapshot.ID).
		Int("players_processed", summary.PlayersProcessed).
		Int("name_changes", summary.ChangesDetected.NameChanges).
		Int("alliance_changes", summary.ChangesDetected.AllianceChanges).
		Int("names_corrected", summary.NamesCorrected).
		Int("players_marked_as_left", summary.PlayersMarkedAsLeft).
		Msg("roster ingested")

	if err := s.notifier.NotifyIngestion(ctx, summary); err != nil {
		log.Warn().Err(err).Msg("ingestion notification not delivered")
	}

	return summary, nil
}

// kingdomLocks serializes ingestions per kingdom.
type kingdomLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKingdomLocks() *kingdomLocks {
	return &kingdomLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *kingdomLocks) lock(kingdomID string) func() {
	k.mu.Lock()
	m, ok := k.locks[kingdomID]
	if !ok {
		m = &sync.Mutex{}
		k.locks[kingdomID] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
