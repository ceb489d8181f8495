// Package postgres persists cluster test results with sqlx over lib/pq.
package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"permcluster/domain/core"
	"permcluster/internal/errors"
	"permcluster/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS cluster_runs (
	run_id     TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	meas       TEXT NOT NULL,
	samples    INTEGER NOT NULL,
	n_clusters INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS clusters (
	run_id TEXT NOT NULL REFERENCES cluster_runs(run_id) ON DELETE CASCADE,
	rank   INTEGER NOT NULL,
	p      DOUBLE PRECISION NOT NULL,
	v      DOUBLE PRECISION NOT NULL,
	tstart DOUBLE PRECISION,
	tstop  DOUBLE PRECISION,
	PRIMARY KEY (run_id, rank)
);`

// Repository implements ports.ResultRepository on PostgreSQL.
type Repository struct {
	db *sqlx.DB
}

// New connects to the database at url and verifies the connection.
func New(url string) (*Repository, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	return &Repository{db: db}, nil
}

// NewWithDB wraps an existing connection (used by tests).
func NewWithDB(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the result tables if they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to run migrations")
	}
	return nil
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Save stores a run with its cluster table in one transaction.
func (r *Repository) Save(ctx context.Context, res *ports.StoredResult) error {
	if res == nil {
		return errors.InvalidInput("result is nil")
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO cluster_runs (run_id, name, meas, samples, n_clusters)
		VALUES (:run_id, :name, :meas, :samples, :n_clusters)`, res)
	if err != nil {
		return errors.DatabaseError("failed to insert run: " + err.Error())
	}
	for _, c := range res.Clusters {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO clusters (run_id, rank, p, v, tstart, tstop)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			res.RunID.String(), c.Rank, c.P, c.V, c.TStart, c.TStop)
		if err != nil {
			return errors.DatabaseError("failed to insert cluster: " + err.Error())
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// Get loads a run and its cluster table.
func (r *Repository) Get(ctx context.Context, id core.RunID) (*ports.StoredResult, error) {
	var res ports.StoredResult
	err := r.db.GetContext(ctx, &res, `
		SELECT run_id, name, meas, samples, n_clusters
		FROM cluster_runs WHERE run_id = $1`, id.String())
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("run " + id.String())
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load run: " + err.Error())
	}
	err = r.db.SelectContext(ctx, &res.Clusters, `
		SELECT rank, p, v, tstart, tstop
		FROM clusters WHERE run_id = $1 ORDER BY rank`, id.String())
	if err != nil {
		return nil, errors.DatabaseError("failed to load clusters: " + err.Error())
	}
	return &res, nil
}
