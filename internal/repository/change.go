package repository

import (
	"context"
	"database/sql"
	"fmt"

	"realm-tracker/internal/constants"
	"realm-tracker/internal/db"
	"realm-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type ChangeRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewChangeRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *ChangeRepository {
	return &ChangeRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *ChangeRepository) WithTx(tx *sql.Tx) *ChangeRepository {
	return &ChangeRepository{
		queries: r.queries.WithTx(tx),
		db:      r.db,
		logger:  r.logger,
	}
}

func (r *ChangeRepository) CreateNameChange(ctx context.Context, change *domain.NameChange) error {
	if change.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		change.ID = id
	}
	change.DetectedAt = dbTime(change.DetectedAt)

	err := r.queries.CreateNameChange(ctx, db.NameChange{
		ID:         change.ID,
		LordID:     change.LordID,
		OldName:    change.OldName,
		NewName:    change.NewName,
		DetectedAt: change.DetectedAt,
		SnapshotID: change.SnapshotID,
	})
	if err != nil {
		return storageErr("create name change "+change.LordID, err)
	}
	return nil
}

func (r *ChangeRepository) CreateAllianceChange(ctx context.Context, change *domain.AllianceChange) error {
	if change.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		change.ID = id
	}
	change.DetectedAt = dbTime(change.DetectedAt)

	err := r.queries.CreateAllianceChange(ctx, db.AllianceChange{
		ID:             change.ID,
		LordID:         change.LordID,
		OldAllianceTag: change.OldAllianceTag,
		OldAllianceID:  change.OldAllianceID,
		NewAllianceTag: change.NewAllianceTag,
		NewAllianceID:  change.NewAllianceID,
		DetectedAt:     change.DetectedAt,
		SnapshotID:     change.SnapshotID,
	})
	if err != nil {
		return storageErr("create alliance change "+change.LordID, err)
	}
	return nil
}

func (r *ChangeRepository) ListNameChanges(ctx context.Context, filter domain.ChangeFilter) ([]domain.NameChange, error) {
	rows, err := r.queries.ListNameChanges(ctx, changeParams(filter))
	if err != nil {
		return nil, storageErr("list name changes", err)
	}

	result := make([]domain.NameChange, len(rows))
	for i, c := range rows {
		result[i] = domain.NameChange{
			ID:         c.ID,
			LordID:     c.LordID,
			OldName:    c.OldName,
			NewName:    c.NewName,
			DetectedAt: c.DetectedAt.UTC(),
			SnapshotID: c.SnapshotID,
		}
	}
	return result, nil
}

func (r *ChangeRepository) ListAllianceChanges(ctx context.Context, filter domain.ChangeFilter) ([]domain.AllianceChange, error) {
	rows, err := r.queries.ListAllianceChanges(ctx, changeParams(filter))
	if err != nil {
		return nil, storageErr("list alliance changes", err)
	}

	result := make([]domain.AllianceChange, len(rows))
	for i, c := range rows {
		result[i] = domain.AllianceChange{
			ID:             c.ID,
			LordID:         c.LordID,
			OldAllianceTag: c.OldAllianceTag,
			OldAllianceID:  c.OldAllianceID,
			NewAllianceTag: c.NewAllianceTag,
			NewAllianceID:  c.NewAllianceID,
			DetectedAt:     c.DetectedAt.UTC(),
			SnapshotID:     c.SnapshotID,
		}
	}
	return result, nil
}

func changeParams(filter domain.ChangeFilter) db.ListChangesParams {
	limit := filter.Limit
	if limit <= 0 {
		limit = constants.ChangeListLimit
	}
	if limit > constants.MaxListLimit {
		limit = constants.MaxListLimit
	}
	return db.ListChangesParams{
		From:   nullTime(filter.From),
		To:     nullTime(filter.To),
		Search: filter.Search,
		LordID: filter.LordID,
		Limit:  int64(limit),
	}
}
