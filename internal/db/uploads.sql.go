package db

import (
	"context"
	"database/sql"
	"time"
)

const createUpload = `-- name: CreateUpload :exec
INSERT INTO uploads (id, filename, size_bytes, checksum, status, error, created_at)
VALUES (?, ?, ?, ?, ?, '', ?)
`

type CreateUploadParams struct {
	ID        string
	Filename  string
	SizeBytes int64
	Checksum  string
	Status    string
	CreatedAt time.Time
}

func (q *Queries) CreateUpload(ctx context.Context, arg CreateUploadParams) error {
	_, err := q.db.ExecContext(ctx, createUpload,
		arg.ID,
		arg.Filename,
		arg.SizeBytes,
		arg.Checksum,
		arg.Status,
		arg.CreatedAt,
	)
	return err
}

const finishUpload = `-- name: FinishUpload :exec
UPDATE uploads SET status = ?, error = ?, completed_at = ? WHERE id = ?
`

type FinishUploadParams struct {
	Status      string
	Error       string
	CompletedAt sql.NullTime
	ID          string
}

func (q *Queries) FinishUpload(ctx context.Context, arg FinishUploadParams) error {
	_, err := q.db.ExecContext(ctx, finishUpload,
		arg.Status,
		arg.Error,
		arg.CompletedAt,
		arg.ID,
	)
	return err
}

const getUpload = `-- name: GetUpload :one
SELECT id, filename, size_bytes, checksum, status, error, created_at, completed_at
FROM uploads WHERE id = ?
`

func (q *Queries) GetUpload(ctx context.Context, id string) (Upload, error) {
	row := q.db.QueryRowContext(ctx, getUpload, id)
	var i Upload
	err := row.Scan(
		&i.ID,
		&i.Filename,
		&i.SizeBytes,
		&i.Checksum,
		&i.Status,
		&i.Error,
		&i.CreatedAt,
		&i.CompletedAt,
	)
	return i, err
}
