package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"realm-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// Transactor runs a unit of work in one database transaction.
type Transactor struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewTransactor(sqlDB *sql.DB, logger zerolog.Logger) *Transactor {
	return &Transactor{db: sqlDB, logger: logger}
}

func (t *Transactor) RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		t.logger.Debug().Err(err).Msg("rolling back transaction")
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("commit transaction", err)
	}
	return nil
}

// dbTime normalizes timestamps so stored values compare correctly as text.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: dbTime(*t), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func storageErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return domain.NewStorageError(op, err)
}
