package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"realm-tracker/internal/constants"
	"realm-tracker/internal/db"
	"realm-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type SnapshotRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
	inTx    bool
}

func NewSnapshotRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *SnapshotRepository) WithTx(tx *sql.Tx) *SnapshotRepository {
	return &SnapshotRepository{
		queries: r.queries.WithTx(tx),
		db:      r.db,
		logger:  r.logger,
		inTx:    true,
	}
}

// Create inserts the snapshot row, assigning an id when none is set.
func (r *SnapshotRepository) Create(ctx context.Context, snapshot *domain.Snapshot) error {
	if snapshot.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		snapshot.ID = id
	}
	snapshot.Timestamp = dbTime(snapshot.Timestamp)
	snapshot.CreatedAt = dbTime(time.Now())

	err := r.queries.CreateSnapshot(ctx, db.CreateSnapshotParams{
		ID:          snapshot.ID,
		KingdomID:   snapshot.KingdomID,
		Timestamp:   snapshot.Timestamp,
		Filename:    snapshot.Filename,
		UploadID:    snapshot.UploadID,
		SeasonID:    sql.NullString{String: snapshot.SeasonID, Valid: snapshot.SeasonID != ""},
		PlayerCount: int64(snapshot.PlayerCount),
		CreatedAt:   snapshot.CreatedAt,
	})
	if err != nil {
		return storageErr("create snapshot", err)
	}
	return nil
}

func (r *SnapshotRepository) SetPlayerCount(ctx context.Context, snapshotID string, count int) error {
	if err := r.queries.UpdateSnapshotPlayerCount(ctx, int64(count), snapshotID); err != nil {
		return storageErr("update snapshot player count", err)
	}
	return nil
}

// CreatePlayerSnapshots inserts one row per record. Outside a caller-owned
// transaction it opens its own, so the call is all-or-nothing either way.
func (r *SnapshotRepository) CreatePlayerSnapshots(ctx context.Context, snapshotID string, records []domain.PlayerRecord) error {
	if len(records) == 0 {
		return nil
	}

	if r.inTx {
		return r.insertPlayerSnapshots(ctx, r.queries, snapshotID, records)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer tx.Rollback()

	if err := r.insertPlayerSnapshots(ctx, r.queries.WithTx(tx), snapshotID, records); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit player snapshots", err)
	}
	return nil
}

func (r *SnapshotRepository) insertPlayerSnapshots(ctx context.Context, qtx *db.Queries, snapshotID string, records []domain.PlayerRecord) error {
	for i := 0; i < len(records); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(records) {
			end = len(records)
		}

		for _, record := range records[i:end] {
			if err := qtx.InsertPlayerSnapshot(ctx, toDBPlayerSnapshot(snapshotID, record)); err != nil {
				return storageErr(fmt.Sprintf("insert player snapshot %s/%s", snapshotID, record.LordID), err)
			}
		}
	}
	return nil
}

func (r *SnapshotRepository) Get(ctx context.Context, id string) (*domain.Snapshot, error) {
	s, err := r.queries.GetSnapshot(ctx, id)
	if err != nil {
		return nil, storageErr("get snapshot "+id, err)
	}
	snapshot := toDomainSnapshot(s)
	return &snapshot, nil
}

// GetLatest returns the newest snapshot, restricted to seasonID when it is set.
func (r *SnapshotRepository) GetLatest(ctx context.Context, seasonID string) (*domain.Snapshot, error) {
	var (
		s   db.Snapshot
		err error
	)
	if seasonID == "" {
		s, err = r.queries.GetLatestSnapshot(ctx)
	} else {
		s, err = r.queries.GetLatestSnapshotBySeason(ctx, seasonID)
	}
	if err != nil {
		return nil, storageErr("get latest snapshot", err)
	}
	snapshot := toDomainSnapshot(s)
	return &snapshot, nil
}

func (r *SnapshotRepository) List(ctx context.Context, limit int) ([]domain.Snapshot, error) {
	rows, err := r.queries.ListSnapshots(ctx, int64(limit))
	if err != nil {
		return nil, storageErr("list snapshots", err)
	}

	result := make([]domain.Snapshot, len(rows))
	for i, s := range rows {
		result[i] = toDomainSnapshot(s)
	}
	return result, nil
}

func (r *SnapshotRepository) ListPlayers(ctx context.Context, snapshotID string, filter domain.PlayerSnapshotFilter) ([]domain.PlayerSnapshot, error) {
	snapshot, err := r.Get(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	rows, err := r.queries.ListPlayerSnapshotsBySnapshot(ctx, db.ListPlayerSnapshotsBySnapshotParams{
		SnapshotID:  snapshotID,
		AllianceTag: filter.AllianceTag,
		Search:      filter.Search,
	})
	if err != nil {
		return nil, storageErr("list player snapshots", err)
	}

	result := make([]domain.PlayerSnapshot, len(rows))
	for i, row := range rows {
		record, err := toDomainPlayerRecord(row)
		if err != nil {
			return nil, err
		}
		result[i] = domain.PlayerSnapshot{
			SnapshotID:   row.SnapshotID,
			SnapshotAt:   snapshot.Timestamp,
			PlayerRecord: record,
		}
	}
	return result, nil
}

// PlayerHistory returns every measurement of one player, oldest first.
func (r *SnapshotRepository) PlayerHistory(ctx context.Context, lordID string) ([]domain.PlayerSnapshot, error) {
	rows, err := r.queries.ListPlayerSnapshotHistory(ctx, lordID)
	if err != nil {
		return nil, storageErr("list player history", err)
	}

	result := make([]domain.PlayerSnapshot, len(rows))
	for i, row := range rows {
		record, err := toDomainPlayerRecord(row.PlayerSnapshot)
		if err != nil {
			return nil, err
		}
		result[i] = domain.PlayerSnapshot{
			SnapshotID:   row.SnapshotID,
			SnapshotAt:   row.SnapshotTimestamp.UTC(),
			PlayerRecord: record,
		}
	}
	return result, nil
}

// PreviousAlliance returns the alliance the player held in the most recent other
// snapshot taken at or before at, or nil when there is none.
func (r *SnapshotRepository) PreviousAlliance(ctx context.Context, lordID, excludeSnapshotID string, at time.Time) (*domain.AllianceRef, error) {
	row, err := r.queries.GetPreviousAlliance(ctx, db.GetPreviousAllianceParams{
		LordID:            lordID,
		ExcludeSnapshotID: excludeSnapshotID,
		AtOrBefore:        dbTime(at),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get previous alliance "+lordID, err)
	}
	return &domain.AllianceRef{Tag: row.AllianceTag, ID: row.AllianceID}, nil
}

func (r *SnapshotRepository) CountPlayers(ctx context.Context, snapshotID string) (int, error) {
	n, err := r.queries.CountPlayerSnapshots(ctx, snapshotID)
	if err != nil {
		return 0, storageErr("count player snapshots", err)
	}
	return int(n), nil
}

func toDomainSnapshot(s db.Snapshot) domain.Snapshot {
	return domain.Snapshot{
		ID:          s.ID,
		KingdomID:   s.KingdomID,
		Timestamp:   s.Timestamp.UTC(),
		Filename:    s.Filename,
		UploadID:    s.UploadID,
		SeasonID:    s.SeasonID.String,
		PlayerCount: int(s.PlayerCount),
		CreatedAt:   s.CreatedAt.UTC(),
	}
}
