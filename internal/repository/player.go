package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"realm-tracker/internal/db"
	"realm-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type PlayerRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *PlayerRepository) WithTx(tx *sql.Tx) *PlayerRepository {
	return &PlayerRepository{
		queries: r.queries.WithTx(tx),
		db:      r.db,
		logger:  r.logger,
	}
}

func (r *PlayerRepository) FindByLordID(ctx context.Context, lordID string) (*domain.Player, error) {
	player, err := r.queries.GetPlayer(ctx, lordID)
	if err != nil {
		return nil, storageErr("get player "+lordID, err)
	}
	p := toDomainPlayer(player)
	return &p, nil
}

// UpsertSighting records that the player was present in kingdomID's export taken
// at seenAt. A sighting at or after the stored one refreshes the name and kingdom
// and clears any departure flag.
func (r *PlayerRepository) UpsertSighting(ctx context.Context, kingdomID, lordID, name string, seenAt time.Time) error {
	err := r.queries.UpsertPlayerSighting(ctx, db.UpsertPlayerSightingParams{
		LordID:      lordID,
		KingdomID:   kingdomID,
		CurrentName: name,
		LastSeenAt:  dbTime(seenAt),
		UpdatedAt:   dbTime(time.Now()),
	})
	if err != nil {
		return storageErr("upsert player "+lordID, err)
	}
	return nil
}

func (r *PlayerRepository) UpdateName(ctx context.Context, lordID, name string) error {
	if err := r.queries.UpdatePlayerName(ctx, name, dbTime(time.Now()), lordID); err != nil {
		return storageErr("update player name "+lordID, err)
	}
	return nil
}

// MarkPlayersAsLeft flags every id as departed at asOf and returns how many rows changed.
// Players already flagged keep their original departure time.
func (r *PlayerRepository) MarkPlayersAsLeft(ctx context.Context, lordIDs []string, asOf time.Time) (int, error) {
	marked := 0
	now := dbTime(time.Now())
	for _, id := range lordIDs {
		n, err := r.queries.MarkPlayerLeft(ctx, dbTime(asOf), now, id)
		if err != nil {
			return marked, storageErr("mark player left "+id, err)
		}
		marked += int(n)
	}
	return marked, nil
}

// FindAbsentPlayers returns unflagged players of kingdomID missing from currentIDs
// whose last sighting is strictly before cutoff and whose latest recorded power is
// at least powerFloor.
func (r *PlayerRepository) FindAbsentPlayers(ctx context.Context, kingdomID string, currentIDs []string, cutoff time.Time, powerFloor domain.Count) ([]domain.Player, error) {
	present := make(map[string]struct{}, len(currentIDs))
	for _, id := range currentIDs {
		present[id] = struct{}{}
	}

	candidates, err := r.queries.ListAbsentCandidates(ctx, kingdomID, dbTime(cutoff))
	if err != nil {
		return nil, storageErr("list absent players", err)
	}

	var absent []domain.Player
	for _, c := range candidates {
		if _, ok := present[c.LordID]; ok {
			continue
		}

		if !powerFloor.IsZero() {
			raw, err := r.queries.GetLatestPower(ctx, c.LordID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, storageErr("get latest power "+c.LordID, err)
			}
			power, _ := domain.ParseCount(raw)
			if power.Cmp(powerFloor) < 0 {
				r.logger.Debug().
					Str("lord_id", c.LordID).
					Str("power", power.String()).
					Str("power_floor", powerFloor.String()).
					Msg("absent player below power floor, ignoring")
				continue
			}
		}

		absent = append(absent, toDomainPlayer(c))
	}

	return absent, nil
}

func toDomainPlayer(p db.Player) domain.Player {
	return domain.Player{
		LordID:       p.LordID,
		KingdomID:    p.KingdomID,
		CurrentName:  p.CurrentName,
		LastSeenAt:   p.LastSeenAt.UTC(),
		HasLeftRealm: p.HasLeftRealm,
		LeftRealmAt:  timePtr(p.LeftRealmAt),
		CreatedAt:    p.CreatedAt.UTC(),
		UpdatedAt:    p.UpdatedAt.UTC(),
	}
}
