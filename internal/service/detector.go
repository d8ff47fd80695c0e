package service

import (
	"context"
	"errors"
	"time"

	"realm-tracker/internal/config"
	"realm-tracker/internal/domain"
	"realm-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// ChangeStores are the repositories a detection pass reads and writes, bound
// to the ingestion transaction.
type ChangeStores struct {
	Players   *repository.PlayerRepository
	Snapshots *repository.SnapshotRepository
	Changes   *repository.ChangeRepository
}

type ChangeDetector struct {
	cutoffDays int
	powerFloor domain.Count
	logger     zerolog.Logger
}

func NewChangeDetector(cfg *config.Config, logger zerolog.Logger) *ChangeDetector {
	return &ChangeDetector{
		cutoffDays: cfg.DepartureCutoffDays,
		powerFloor: domain.NewCount(cfg.DeparturePowerFloor),
		logger:     logger,
	}
}

// PriorState is what the store knew about a player before the current export.
type PriorState struct {
	player   *domain.Player
	alliance *domain.AllianceRef
}

// Observe reads the stored state of every player in a batch. It must run before
// the batch's identities are upserted, while the stored name is still the
// previous one. New players and players whose state could not be read are
// absent from the result.
func (d *ChangeDetector) Observe(ctx context.Context, st ChangeStores, snapshot *domain.Snapshot, batch []domain.PlayerRecord) map[string]PriorState {
	prior := make(map[string]PriorState, len(batch))

	for _, record := range batch {
		state, err := d.observePlayer(ctx, st, snapshot, record.LordID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			d.logger.Warn().
				Err(err).
				Str("lord_id", record.LordID).
				Str("snapshot_id", snapshot.ID).
				Msg("change detection failed for player, skipping")
			continue
		}
		prior[record.LordID] = state
	}

	return prior
}

func (d *ChangeDetector) observePlayer(ctx context.Context, st ChangeStores, snapshot *domain.Snapshot, lordID string) (PriorState, error) {
	existing, err := st.Players.FindByLordID(ctx, lordID)
	if err != nil {
		return PriorState{}, err
	}
	prev, err := st.Snapshots.PreviousAlliance(ctx, lordID, snapshot.ID, snapshot.Timestamp)
	if err != nil {
		return PriorState{}, err
	}
	return PriorState{player: existing, alliance: prev}, nil
}

// RecordChanges writes name and alliance changes for records whose sighting was
// stored, comparing against the state Observe captured. Failures for one player
// never stop the others.
func (d *ChangeDetector) RecordChanges(ctx context.Context, st ChangeStores, snapshot *domain.Snapshot, stored []domain.PlayerRecord, prior map[string]PriorState) domain.ChangeCounts {
	var counts domain.ChangeCounts

	for _, record := range stored {
		state, ok := prior[record.LordID]
		if !ok {
			continue
		}
		nameChanged, allianceChanged, err := d.recordPlayer(ctx, st, snapshot, record, state)
		if nameChanged {
			counts.NameChanges++
		}
		if allianceChanged {
			counts.AllianceChanges++
		}
		if err != nil {
			d.logger.Warn().
				Err(err).
				Str("lord_id", record.LordID).
				Str("snapshot_id", snapshot.ID).
				Msg("change detection failed for player, skipping")
		}
	}

	return counts
}

func (d *ChangeDetector) recordPlayer(ctx context.Context, st ChangeStores, snapshot *domain.Snapshot, record domain.PlayerRecord, state PriorState) (bool, bool, error) {
	existing := state.player

	nameChanged := false
	// an export older than the last sighting does not speak for the current name
	if existing.CurrentName != record.Name && !snapshot.Timestamp.Before(existing.LastSeenAt) {
		change := &domain.NameChange{
			LordID:     record.LordID,
			OldName:    existing.CurrentName,
			NewName:    record.Name,
			DetectedAt: snapshot.Timestamp,
			SnapshotID: snapshot.ID,
		}
		if err := st.Changes.CreateNameChange(ctx, change); err != nil {
			return false, false, err
		}
		nameChanged = true
		d.logger.Info().
			Str("lord_id", record.LordID).
			Str("old_name", change.OldName).
			Str("new_name", change.NewName).
			Msg("name change detected")
	}

	prev := state.alliance
	if prev == nil || (prev.Tag == record.AllianceTag && prev.ID == record.AllianceID) {
		return nameChanged, false, nil
	}

	change := &domain.AllianceChange{
		LordID:         record.LordID,
		OldAllianceTag: prev.Tag,
		OldAllianceID:  prev.ID,
		NewAllianceTag: record.AllianceTag,
		NewAllianceID:  record.AllianceID,
		DetectedAt:     snapshot.Timestamp,
		SnapshotID:     snapshot.ID,
	}
	if err := st.Changes.CreateAllianceChange(ctx, change); err != nil {
		return nameChanged, false, err
	}
	d.logger.Info().
		Str("lord_id", record.LordID).
		Str("old_alliance", change.OldAllianceTag).
		Str("new_alliance", change.NewAllianceTag).
		Msg("alliance change detected")

	return nameChanged, true, nil
}

// CorrectNames re-applies each record's name to its Player row where the two
// disagree. It returns the number of corrections and never fails.
func (d *ChangeDetector) CorrectNames(ctx context.Context, players *repository.PlayerRepository, seenAt time.Time, records []domain.PlayerRecord) int {
	corrected := 0

	for _, record := range records {
		player, err := players.FindByLordID(ctx, record.LordID)
		if err != nil {
			d.logger.Warn().Err(err).Str("lord_id", record.LordID).Msg("name consistency check failed, skipping")
			continue
		}
		if player.LastSeenAt.After(seenAt) || player.CurrentName == record.Name {
			continue
		}

		if err := players.UpdateName(ctx, record.LordID, record.Name); err != nil {
			d.logger.Warn().Err(err).Str("lord_id", record.LordID).Msg("name correction failed, skipping")
			continue
		}
		corrected++
		d.logger.Debug().
			Str("lord_id", record.LordID).
			Str("stored_name", player.CurrentName).
			Str("name", record.Name).
			Msg("corrected stored name")
	}

	if corrected > 0 {
		d.logger.Warn().Int("corrected", corrected).Msg("name consistency pass corrected stored names")
	} else {
		d.logger.Debug().Msg("name consistency pass found no drift")
	}
	return corrected
}

// InferDepartures flags players of kingdomID absent from this export whose last
// sighting is strictly older than asOf minus the cutoff. It returns how many were
// flagged.
func (d *ChangeDetector) InferDepartures(ctx context.Context, players *repository.PlayerRepository, kingdomID string, presentIDs []string, asOf time.Time) (int, error) {
	cutoff := d.Cutoff(asOf)

	candidates, err := players.FindAbsentPlayers(ctx, kingdomID, presentIDs, cutoff, d.powerFloor)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		d.logger.Debug().Time("cutoff", cutoff).Msg("no departures inferred")
		return 0, nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.LordID
	}

	marked, err := players.MarkPlayersAsLeft(ctx, ids, asOf)
	if err != nil {
		return marked, err
	}

	d.logger.Info().
		Int("marked", marked).
		Str("kingdom", kingdomID).
		Time("cutoff", cutoff).
		Time("as_of", asOf).
		Msg("players marked as left the realm")
	return marked, nil
}

func (d *ChangeDetector) Cutoff(asOf time.Time) time.Time {
	return asOf.AddDate(0, 0, -d.cutoffDays)
}
