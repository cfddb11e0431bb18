package records

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/adaptermap/core/logger"
)

var log = logger.Named("records")

const upsertSQL = `
INSERT INTO adapters (user_id, username, latitude, longitude, additional_information)
VALUES (:user_id, :username, :latitude, :longitude, :additional_information)
ON CONFLICT (user_id) DO UPDATE SET
    username = EXCLUDED.username,
    latitude = EXCLUDED.latitude,
    longitude = EXCLUDED.longitude,
    additional_information = EXCLUDED.additional_information,
    updated_at = now()`

const listSQL = `
SELECT user_id, username, latitude, longitude, additional_information
FROM adapters
ORDER BY user_id`

// row is the flat column layout of the adapters table.
type row struct {
	UserID    int64          `db:"user_id"`
	Username  string         `db:"username"`
	Latitude  float64        `db:"latitude"`
	Longitude float64        `db:"longitude"`
	Note      sql.NullString `db:"additional_information"`
}

func toRow(r Record) row {
	out := row{
		UserID:    r.UserID,
		Username:  r.Username,
		Latitude:  r.Location.Latitude,
		Longitude: r.Location.Longitude,
	}
	if r.Note != nil {
		out.Note = sql.NullString{String: *r.Note, Valid: true}
	}
	return out
}

func (r row) record() Record {
	rec := Record{
		UserID:   r.UserID,
		Username: r.Username,
		Location: Location{Latitude: r.Latitude, Longitude: r.Longitude},
	}
	if r.Note.Valid {
		note := r.Note.String
		rec.Note = &note
	}
	return rec
}

// Repository stores map entries in PostgreSQL.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps an open database handle.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Insert creates the user's entry or replaces the existing one.
func (r *Repository) Insert(ctx context.Context, rec Record) error {
	if rec.Username == "" {
		return ErrNoHandle
	}
	start := time.Now()
	if _, err := r.db.NamedExecContext(ctx, upsertSQL, toRow(rec)); err != nil {
		log.Error(ctx, "record.upsert",
			slog.String("status", "fail"),
			slog.Int64("user_id", rec.UserID),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("upsert adapter %d: %w", rec.UserID, err)
	}
	log.Info(ctx, "record.upsert",
		slog.String("status", "ok"),
		slog.Int64("user_id", rec.UserID),
		slog.Bool("has_note", rec.Note != nil),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// List returns every entry ordered by user ID.
func (r *Repository) List(ctx context.Context) ([]Record, error) {
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, listSQL); err != nil {
		return nil, fmt.Errorf("list adapters: %w", err)
	}
	out := make([]Record, 0, len(rows))
	for _, rw := range rows {
		out = append(out, rw.record())
	}
	return out, nil
}
