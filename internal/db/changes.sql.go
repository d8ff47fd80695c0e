package db

import (
	"context"
	"database/sql"
)

const createNameChange = `-- name: CreateNameChange :exec
INSERT INTO name_changes (id, lord_id, old_name, new_name, detected_at, snapshot_id)
VALUES (?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateNameChange(ctx context.Context, arg NameChange) error {
	_, err := q.db.ExecContext(ctx, createNameChange,
		arg.ID,
		arg.LordID,
		arg.OldName,
		arg.NewName,
		arg.DetectedAt,
		arg.SnapshotID,
	)
	return err
}

const createAllianceChange = `-- name: CreateAllianceChange :exec
INSERT INTO alliance_changes (id, lord_id, old_alliance_tag, old_alliance_id, new_alliance_tag, new_alliance_id, detected_at, snapshot_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateAllianceChange(ctx context.Context, arg AllianceChange) error {
	_, err := q.db.ExecContext(ctx, createAllianceChange,
		arg.ID,
		arg.LordID,
		arg.OldAllianceTag,
		arg.OldAllianceID,
		arg.NewAllianceTag,
		arg.NewAllianceID,
		arg.DetectedAt,
		arg.SnapshotID,
	)
	return err
}

type ListChangesParams struct {
	From   sql.NullTime
	To     sql.NullTime
	Search string
	LordID string
	Limit  int64
}

const listNameChanges = `-- name: ListNameChanges :many
SELECT id, lord_id, old_name, new_name, detected_at, snapshot_id
FROM name_changes
WHERE (?1 IS NULL OR detected_at >= ?1)
  AND (?2 IS NULL OR detected_at <= ?2)
  AND (?3 = '' OR old_name LIKE '%' || ?3 || '%' OR new_name LIKE '%' || ?3 || '%' OR lord_id = ?3)
  AND (?4 = '' OR lord_id = ?4)
ORDER BY detected_at DESC, id
LIMIT ?5
`

func (q *Queries) ListNameChanges(ctx context.Context, arg ListChangesParams) ([]NameChange, error) {
	rows, err := q.db.QueryContext(ctx, listNameChanges, arg.From, arg.To, arg.Search, arg.LordID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []NameChange
	for rows.Next() {
		var i NameChange
		if err := rows.Scan(
			&i.ID,
			&i.LordID,
			&i.OldName,
			&i.NewName,
			&i.DetectedAt,
			&i.SnapshotID,
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

const listAllianceChanges = `-- name: ListAllianceChanges :many
SELECT id, lord_id, old_alliance_tag, old_alliance_id, new_alliance_tag, new_alliance_id, detected_at, snapshot_id
FROM alliance_changes
WHERE (?1 IS NULL OR detected_at >= ?1)
  AND (?2 IS NULL OR detected_at <= ?2)
  AND (?3 = '' OR old_alliance_tag LIKE '%' || ?3 || '%' OR new_alliance_tag LIKE '%' || ?3 || '%' OR lord_id = ?3)
  AND (?4 = '' OR lord_id = ?4)
ORDER BY detected_at DESC, id
LIMIT ?5
`

func (q *Queries) ListAllianceChanges(ctx context.Context, arg ListChangesParams) ([]AllianceChange, error) {
	rows, err := q.db.QueryContext(ctx, listAllianceChanges, arg.From, arg.To, arg.Search, arg.LordID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AllianceChange
	for rows.Next() {
		var i AllianceChange
		if err := rows.Scan(
			&i.ID,
			&i.LordID,
			&i.OldAllianceTag,
			&i.OldAllianceID,
			&i.NewAllianceTag,
			&i.NewAllianceID,
			&i.DetectedAt,
			&i.SnapshotID,
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
