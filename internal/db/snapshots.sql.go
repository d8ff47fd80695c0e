package db

import (
	"context"
	"database/sql"
	"time"
)

const snapshotColumns = `id, kingdom_id, timestamp, filename, upload_id, season_id, player_count, created_at`

func scanSnapshot(row interface{ Scan(...interface{}) error }) (Snapshot, error) {
	var i Snapshot
	err := row.Scan(
		&i.ID,
		&i.KingdomID,
		&i.Timestamp,
		&i.Filename,
		&i.UploadID,
		&i.SeasonID,
		&i.PlayerCount,
		&i.CreatedAt,
	)
	return i, err
}

const createSnapshot = `-- name: CreateSnapshot :exec
INSERT INTO snapshots (id, kingdom_id, timestamp, filename, upload_id, season_id, player_count, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateSnapshotParams struct {
	ID          string
	KingdomID   string
	Timestamp   time.Time
	Filename    string
	UploadID    string
	SeasonID    sql.NullString
	PlayerCount int64
	CreatedAt   time.Time
}

func (q *Queries) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) error {
	_, err := q.db.ExecContext(ctx, createSnapshot,
		arg.ID,
		arg.KingdomID,
		arg.Timestamp,
		arg.Filename,
		arg.UploadID,
		arg.SeasonID,
		arg.PlayerCount,
		arg.CreatedAt,
	)
	return err
}

const updateSnapshotPlayerCount = `-- name: UpdateSnapshotPlayerCount :exec
UPDATE snapshots SET player_count = ? WHERE id = ?
`

func (q *Queries) UpdateSnapshotPlayerCount(ctx context.Context, playerCount int64, id string) error {
	_, err := q.db.ExecContext(ctx, updateSnapshotPlayerCount, playerCount, id)
	return err
}

const getSnapshot = `-- name: GetSnapshot :one
SELECT ` + snapshotColumns + ` FROM snapshots WHERE id = ?
`

func (q *Queries) GetSnapshot(ctx context.Context, id string) (Snapshot, error) {
	return scanSnapshot(q.db.QueryRowContext(ctx, getSnapshot, id))
}

const getLatestSnapshot = `-- name: GetLatestSnapshot :one
SELECT ` + snapshotColumns + ` FROM snapshots
ORDER BY timestamp DESC, created_at DESC
LIMIT 1
`

func (q *Queries) GetLatestSnapshot(ctx context.Context) (Snapshot, error) {
	return scanSnapshot(q.db.QueryRowContext(ctx, getLatestSnapshot))
}

const getLatestSnapshotBySeason = `-- name: GetLatestSnapshotBySeason :one
SELECT ` + snapshotColumns + ` FROM snapshots
WHERE season_id = ?
ORDER BY timestamp DESC, created_at DESC
LIMIT 1
`

func (q *Queries) GetLatestSnapshotBySeason(ctx context.Context, seasonID string) (Snapshot, error) {
	return scanSnapshot(q.db.QueryRowContext(ctx, getLatestSnapshotBySeason, seasonID))
}

const listSnapshots = `-- name: ListSnapshots :many
SELECT ` + snapshotColumns + ` FROM snapshots
ORDER BY timestamp DESC, created_at DESC
LIMIT ?
`

func (q *Queries) ListSnapshots(ctx context.Context, limit int64) ([]Snapshot, error) {
	rows, err := q.db.QueryContext(ctx, listSnapshots, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Snapshot
	for rows.Next() {
		i, err := scanSnapshot(rows)
		if err != nil {
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
