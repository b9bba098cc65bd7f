package curve

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists daily curve observations in PostgreSQL.
// One row per (date, tenor); histories are pivoted back on load.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new curve repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the observation table when it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE SCHEMA IF NOT EXISTS curve`,
		`CREATE TABLE IF NOT EXISTS curve.observations (
			obs_date     date             NOT NULL,
			maturity_idx smallint         NOT NULL,
			rate         double precision NOT NULL,
			PRIMARY KEY (obs_date, maturity_idx)
		)`,
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure curve schema: %w", err)
		}
	}
	return nil
}

// Store upserts every observation of the history. Refreshes overlap with
// already-stored dates, so conflicts update in place.
func (r *Repository) Store(ctx context.Context, history *History) error {
	if err := history.Validate(); err != nil {
		return fmt.Errorf("refusing to store invalid history: %w", err)
	}

	query := `
		INSERT INTO curve.observations (obs_date, maturity_idx, rate)
		VALUES ($1, $2, $3)
		ON CONFLICT (obs_date, maturity_idx) DO UPDATE SET rate = EXCLUDED.rate
	`

	batch := &pgx.Batch{}
	for i, date := range history.Dates {
		for j, rate := range history.Rates[i] {
			batch.Queue(query, date, j, rate)
		}
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("store observation batch item %d: %w", i, err)
		}
	}

	return nil
}

// LoadRange loads the stored history with from <= date <= to, oldest first.
// Days without a full set of tenors are dropped, mirroring the acquisition
// layer's gap policy.
func (r *Repository) LoadRange(ctx context.Context, from, to time.Time) (*History, error) {
	query := `
		SELECT obs_date, maturity_idx, rate
		FROM curve.observations
		WHERE obs_date BETWEEN $1 AND $2
		ORDER BY obs_date ASC, maturity_idx ASC
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	history := &History{}
	var curDate time.Time
	var curRow []float64
	seen := 0

	flush := func() {
		if seen == len(Maturities) {
			history.Dates = append(history.Dates, curDate)
			history.Rates = append(history.Rates, curRow)
		}
	}

	for rows.Next() {
		var date time.Time
		var idx int
		var rate float64
		if err := rows.Scan(&date, &idx, &rate); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		if idx < 0 || idx >= len(Maturities) {
			return nil, fmt.Errorf("stored maturity index %d out of range", idx)
		}

		if !date.Equal(curDate) {
			if seen > 0 {
				flush()
			}
			curDate = date
			curRow = make([]float64, len(Maturities))
			seen = 0
		}
		curRow[idx] = rate
		seen++
	}
	if seen > 0 {
		flush()
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}

	return history, nil
}

// LatestDate returns the most recent stored observation date, or the zero
// time when nothing is stored.
func (r *Repository) LatestDate(ctx context.Context) (time.Time, error) {
	query := `SELECT COALESCE(MAX(obs_date), 'epoch'::date) FROM curve.observations`

	var latest time.Time
	if err := r.pool.QueryRow(ctx, query).Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("query latest date: %w", err)
	}
	if latest.Year() <= 1970 {
		return time.Time{}, nil
	}
	return latest, nil
}
