package service

import (
	"context"

	"realm-tracker/internal/constants"
	"realm-tracker/internal/domain"
	"realm-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// RosterService is the read-only surface for dashboards and reports.
type RosterService struct {
	snapshots *repository.SnapshotRepository
	players   *repository.PlayerRepository
	changes   *repository.ChangeRepository
	uploads   *repository.UploadRepository
	logger    zerolog.Logger
}

func NewRosterService(
	snapshots *repository.SnapshotRepository,
	players *repository.PlayerRepository,
	changes *repository.ChangeRepository,
	uploads *repository.UploadRepository,
	logger zerolog.Logger,
) *RosterService {
	return &RosterService{snapshots: snapshots, players: players, changes: changes, uploads: uploads, logger: logger}
}

func (s *RosterService) LatestSnapshot(ctx context.Context, seasonID string) (*domain.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	s.logger.Debug().Str("season", seasonID).Msg("getting latest snapshot")
	return s.snapshots.GetLatest(ctx, seasonID)
}

func (s *RosterService) ListSnapshots(ctx context.Context, limit int) ([]domain.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.snapshots.List(ctx, clampLimit(limit, constants.SnapshotListLimit))
}

func (s *RosterService) SnapshotPlayers(ctx context.Context, snapshotID string, filter domain.PlayerSnapshotFilter) ([]domain.PlayerSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	players, err := s.snapshots.ListPlayers(ctx, snapshotID, filter)
	if err != nil {
		s.logger.Error().Err(err).Str("snapshot_id", snapshotID).Msg("failed to list snapshot players")
		return nil, err
	}
	s.logger.Debug().Str("snapshot_id", snapshotID).Int("count", len(players)).Msg("snapshot players listed")
	return players, nil
}

func (s *RosterService) Player(ctx context.Context, lordID string) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.players.FindByLordID(ctx, lordID)
}

func (s *RosterService) PlayerHistory(ctx context.Context, lordID string) ([]domain.PlayerSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := s.players.FindByLordID(ctx, lordID); err != nil {
		return nil, err
	}
	return s.snapshots.PlayerHistory(ctx, lordID)
}

func (s *RosterService) NameChanges(ctx context.Context, filter domain.ChangeFilter) ([]domain.NameChange, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.changes.ListNameChanges(ctx, filter)
}

func (s *RosterService) AllianceChanges(ctx context.Context, filter domain.ChangeFilter) ([]domain.AllianceChange, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.changes.ListAllianceChanges(ctx, filter)
}

func (s *RosterService) Upload(ctx context.Context, id string) (*domain.Upload, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.uploads.Get(ctx, id)
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > constants.MaxListLimit {
		return constants.MaxListLimit
	}
	return limit
}
