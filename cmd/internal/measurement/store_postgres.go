package measurement

import (
	"context"
	"fmt"
	"time"

	"pulselog/cmd/identity/ids"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL. The pool is owned by the caller.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("measurement: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context, m Measurement) (Measurement, error) {
	const op = "measurement.Create"

	if err := m.Validate(); err != nil {
		return Measurement{}, err
	}
	// TakenAt is client supplied and may predate the ULID epoch.
	id, err := ids.NewULID(time.Now().UTC())
	if err != nil {
		return Measurement{}, err
	}
	m.ID = id
	m.TakenAt = m.TakenAt.UTC()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO measurements (id, user_id, systolic, diastolic, heart_rate, taken_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.UserID, m.Systolic, m.Diastolic, m.HeartRate, m.TakenAt,
	)
	if err != nil {
		return Measurement{}, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

func (s *PostgresStore) List(ctx context.Context, userID string) ([]Measurement, error) {
	const op = "measurement.List"

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, systolic, diastolic, heart_rate, taken_at
		   FROM measurements
		  WHERE user_id = $1
		  ORDER BY taken_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Measurement, error) {
		var m Measurement
		err := row.Scan(&m.ID, &m.UserID, &m.Systolic, &m.Diastolic, &m.HeartRate, &m.TakenAt)
		m.TakenAt = m.TakenAt.UTC()
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID, id string) error {
	const op = "measurement.Delete"

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM measurements WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Average(ctx context.Context, userID string) (Average, error) {
	const op = "measurement.Average"

	var a Average
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(AVG(systolic), 0)::float8,
		        COALESCE(AVG(diastolic), 0)::float8,
		        COALESCE(AVG(heart_rate), 0)::float8,
		        COUNT(*)
		   FROM measurements
		  WHERE user_id = $1`,
		userID,
	).Scan(&a.Systolic, &a.Diastolic, &a.HeartRate, &a.Count)
	if err != nil {
		return Average{}, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}
