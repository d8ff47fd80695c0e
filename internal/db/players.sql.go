package db

import (
	"context"
	"time"
)

const getPlayer = `-- name: GetPlayer :one
SELECT lord_id, kingdom_id, current_name, last_seen_at, has_left_realm, left_realm_at, created_at, updated_at
FROM players WHERE lord_id = ?
`

func (q *Queries) GetPlayer(ctx context.Context, lordID string) (Player, error) {
	row := q.db.QueryRowContext(ctx, getPlayer, lordID)
	var i Player
	err := row.Scan(
		&i.LordID,
		&i.KingdomID,
		&i.CurrentName,
		&i.LastSeenAt,
		&i.HasLeftRealm,
		&i.LeftRealmAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

// An older export never rolls back a newer sighting.
const upsertPlayerSighting = `-- name: UpsertPlayerSighting :exec
INSERT INTO players (lord_id, kingdom_id, current_name, last_seen_at, has_left_realm, left_realm_at, created_at, updated_at)
VALUES (?1, ?2, ?3, ?4, 0, NULL, ?5, ?5)
ON CONFLICT(lord_id) DO UPDATE SET
    kingdom_id = CASE WHEN excluded.last_seen_at >= players.last_seen_at THEN excluded.kingdom_id ELSE players.kingdom_id END,
    current_name = CASE WHEN excluded.last_seen_at >= players.last_seen_at THEN excluded.current_name ELSE players.current_name END,
    has_left_realm = CASE WHEN excluded.last_seen_at >= players.last_seen_at THEN 0 ELSE players.has_left_realm END,
    left_realm_at = CASE WHEN excluded.last_seen_at >= players.last_seen_at THEN NULL ELSE players.left_realm_at END,
    last_seen_at = MAX(players.last_seen_at, excluded.last_seen_at),
    updated_at = excluded.updated_at
`

type UpsertPlayerSightingParams struct {
	LordID      string
	KingdomID   string
	CurrentName string
	LastSeenAt  time.Time
	UpdatedAt   time.Time
}

func (q *Queries) UpsertPlayerSighting(ctx context.Context, arg UpsertPlayerSightingParams) error {
	_, err := q.db.ExecContext(ctx, upsertPlayerSighting,
		arg.LordID,
		arg.KingdomID,
		arg.CurrentName,
		arg.LastSeenAt,
		arg.UpdatedAt,
	)
	return err
}

const updatePlayerName = `-- name: UpdatePlayerName :exec
UPDATE players SET current_name = ?, updated_at = ? WHERE lord_id = ?
`

func (q *Queries) UpdatePlayerName(ctx context.Context, currentName string, updatedAt time.Time, lordID string) error {
	_, err := q.db.ExecContext(ctx, updatePlayerName, currentName, updatedAt, lordID)
	return err
}

const markPlayerLeft = `-- name: MarkPlayerLeft :execrows
UPDATE players SET has_left_realm = 1, left_realm_at = ?, updated_at = ?
WHERE lord_id = ? AND has_left_realm = 0
`

func (q *Queries) MarkPlayerLeft(ctx context.Context, leftRealmAt, updatedAt time.Time, lordID string) (int64, error) {
	result, err := q.db.ExecContext(ctx, markPlayerLeft, leftRealmAt, updatedAt, lordID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listAbsentCandidates = `-- name: ListAbsentCandidates :many
SELECT lord_id, kingdom_id, current_name, last_seen_at, has_left_realm, left_realm_at, created_at, updated_at
FROM players
WHERE kingdom_id = ? AND has_left_realm = 0 AND last_seen_at < ?
ORDER BY lord_id
`

func (q *Queries) ListAbsentCandidates(ctx context.Context, kingdomID string, cutoff time.Time) ([]Player, error) {
	rows, err := q.db.QueryContext(ctx, listAbsentCandidates, kingdomID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Player
	for rows.Next() {
		var i Player
		if err := rows.Scan(
			&i.LordID,
			&i.KingdomID,
			&i.CurrentName,
			&i.LastSeenAt,
			&i.HasLeftRealm,
			&i.LeftRealmAt,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
