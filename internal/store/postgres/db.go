package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS assignment (
	id        BIGSERIAL PRIMARY KEY,
	title     TEXT NOT NULL,
	ord       INT  NOT NULL UNIQUE,
	handout   TEXT NOT NULL DEFAULT '',
	test_code TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS submission (
	id            BIGSERIAL PRIMARY KEY,
	assignment_id BIGINT NOT NULL REFERENCES assignment (id),
	user_id       TEXT   NOT NULL,
	code          TEXT   NOT NULL,
	status        TEXT   NOT NULL DEFAULT 'pending',
	feedback      TEXT   NOT NULL DEFAULT '',
	correct       BOOLEAN NOT NULL DEFAULT FALSE,
	last_updated  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS submission_user_idx
	ON submission (user_id, last_updated DESC);
CREATE INDEX IF NOT EXISTS submission_user_assignment_idx
	ON submission (user_id, assignment_id, last_updated DESC);
CREATE INDEX IF NOT EXISTS submission_dedup_idx
	ON submission (assignment_id, code, last_updated DESC);
`

// Open connects to Postgres, waits for it to accept connections, and
// ensures the schema exists.
func Open(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err := ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between
// each attempt.
func ping(ctx context.Context, db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

// EnsureSchema creates the platform tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "ensuring schema")
	}
	return nil
}
