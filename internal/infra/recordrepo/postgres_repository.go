package recordrepo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/thermostraw/internal/domain/dashboard"
	"github.com/yanqian/thermostraw/internal/domain/prediction"
)

const schema = `
	CREATE TABLE IF NOT EXISTS prediction_records (
		id           UUID PRIMARY KEY,
		session_id   TEXT NOT NULL,
		batch_number TEXT NOT NULL DEFAULT '',
		taux_2mm     DOUBLE PRECISION NOT NULL,
		taux_1mm     DOUBLE PRECISION NOT NULL,
		taux_500um   DOUBLE PRECISION NOT NULL,
		taux_250um   DOUBLE PRECISION NOT NULL,
		taux_0       DOUBLE PRECISION NOT NULL,
		lambda       DOUBLE PRECISION NOT NULL,
		confidence_interval DOUBLE PRECISION NOT NULL,
		status       TEXT NOT NULL DEFAULT '',
		badge        TEXT NOT NULL,
		threshold    DOUBLE PRECISION NOT NULL,
		auto         BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS prediction_records_created_at_idx ON prediction_records (created_at DESC);
`

// PostgresRepository implements dashboard.RecordRepository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the history table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

// Append inserts one record.
func (r *PostgresRepository) Append(ctx context.Context, rec dashboard.Record) error {
	f := rec.Fractions
	_, err := r.pool.Exec(ctx, `
		INSERT INTO prediction_records (
			id, session_id, batch_number,
			taux_2mm, taux_1mm, taux_500um, taux_250um, taux_0,
			lambda, confidence_interval, status, badge, threshold, auto, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, rec.ID, rec.SessionID, rec.BatchNumber,
		f.Taux2mm, f.Taux1mm, f.Taux500um, f.Taux250um, f.Taux0,
		rec.Lambda, rec.Interval, rec.Status, string(rec.Badge), rec.Threshold, rec.Auto, rec.CreatedAt)
	return err
}

// List returns the newest records first.
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]dashboard.Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, batch_number,
			taux_2mm, taux_1mm, taux_500um, taux_250um, taux_0,
			lambda, confidence_interval, status, badge, threshold, auto, created_at
		FROM prediction_records
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dashboard.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (dashboard.Record, error) {
	var (
		rec   dashboard.Record
		badge string
	)
	f := &rec.Fractions
	if err := row.Scan(
		&rec.ID, &rec.SessionID, &rec.BatchNumber,
		&f.Taux2mm, &f.Taux1mm, &f.Taux500um, &f.Taux250um, &f.Taux0,
		&rec.Lambda, &rec.Interval, &rec.Status, &badge, &rec.Threshold, &rec.Auto, &rec.CreatedAt,
	); err != nil {
		return dashboard.Record{}, err
	}
	rec.Badge = prediction.Status(badge)
	return rec, nil
}

var _ dashboard.RecordRepository = (*PostgresRepository)(nil)
