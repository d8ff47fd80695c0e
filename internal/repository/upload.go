package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"realm-tracker/internal/db"
	"realm-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type UploadRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewUploadRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *UploadRepository {
	return &UploadRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *UploadRepository) Create(ctx context.Context, upload *domain.Upload) error {
	if upload.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		upload.ID = id
	}
	if upload.Status == "" {
		upload.Status = domain.UploadProcessing
	}
	upload.CreatedAt = dbTime(time.Now())

	err := r.queries.CreateUpload(ctx, db.CreateUploadParams{
		ID:        upload.ID,
		Filename:  upload.Filename,
		SizeBytes: upload.SizeBytes,
		Checksum:  upload.Checksum,
		Status:    string(upload.Status),
		CreatedAt: upload.CreatedAt,
	})
	if err != nil {
		return storageErr("create upload", err)
	}
	return nil
}

func (r *UploadRepository) Finish(ctx context.Context, id string, status domain.UploadStatus, message string) error {
	now := time.Now()
	err := r.queries.FinishUpload(ctx, db.FinishUploadParams{
		Status:      string(status),
		Error:       message,
		CompletedAt: nullTime(&now),
		ID:          id,
	})
	if err != nil {
		r.logger.Error().Err(err).Str("upload_id", id).Str("status", string(status)).Msg("failed to finish upload")
		return storageErr("finish upload "+id, err)
	}
	return nil
}

func (r *UploadRepository) Get(ctx context.Context, id string) (*domain.Upload, error) {
	u, err := r.queries.GetUpload(ctx, id)
	if err != nil {
		return nil, storageErr("get upload "+id, err)
	}
	return &domain.Upload{
		ID:          u.ID,
		Filename:    u.Filename,
		SizeBytes:   u.SizeBytes,
		Checksum:    u.Checksum,
		Status:      domain.UploadStatus(u.Status),
		Error:       u.Error,
		CreatedAt:   u.CreatedAt.UTC(),
		CompletedAt: timePtr(u.CompletedAt),
	}, nil
}
