package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:examengine.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/examengine?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  pass_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'FREE'
);

CREATE TABLE IF NOT EXISTS passages (
  id TEXT PRIMARY KEY,
  section TEXT NOT NULL,
  content TEXT NOT NULL,
  question_ids_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS passages_section_idx ON passages(section);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  passage_id TEXT REFERENCES passages(id),
  section TEXT NOT NULL,
  text TEXT NOT NULL,
  options_json TEXT NOT NULL,
  correct_json TEXT NOT NULL,
  positive_marks REAL NOT NULL DEFAULT 1,
  negative_marks REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tests (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  title TEXT NOT NULL,
  type TEXT NOT NULL,
  section TEXT,
  duration_minutes INTEGER NOT NULL,
  passage_ids_json TEXT NOT NULL,
  question_ids_json TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS tests_user_idx ON tests(user_id, created_at);

CREATE TABLE IF NOT EXISTS test_attempts (
  id TEXT PRIMARY KEY,
  test_id TEXT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  attempt_number INTEGER NOT NULL,
  is_latest INTEGER NOT NULL DEFAULT 0,
  answers_json TEXT NOT NULL,
  question_times_json TEXT NOT NULL,
  total_questions INTEGER NOT NULL,
  completed INTEGER NOT NULL DEFAULT 0,
  score REAL NOT NULL DEFAULT 0,
  percentage REAL NOT NULL DEFAULT 0,
  correct_answers INTEGER NOT NULL DEFAULT 0,
  wrong_answers INTEGER NOT NULL DEFAULT 0,
  unattempted INTEGER NOT NULL DEFAULT 0,
  total_attempted INTEGER NOT NULL DEFAULT 0,
  total_time_sec INTEGER NOT NULL DEFAULT 0,
  started_at INTEGER NOT NULL,
  completed_at INTEGER
);
-- Backstop for the "exactly one latest per (user,test)" invariant.
CREATE UNIQUE INDEX IF NOT EXISTS attempts_latest_idx ON test_attempts(test_id, user_id) WHERE is_latest;
CREATE INDEX IF NOT EXISTS attempts_test_user_idx ON test_attempts(test_id, user_id, attempt_number);

CREATE TABLE IF NOT EXISTS event_log (
  "offset" INTEGER PRIMARY KEY AUTOINCREMENT, -- BIGSERIAL in Postgres
  typ TEXT NOT NULL,                        -- e.g., AttemptSubmitted
  key TEXT NOT NULL,                        -- natural key: attempt/test id
  data TEXT NOT NULL,                       -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  pass_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'FREE'
);

CREATE TABLE IF NOT EXISTS passages (
  id TEXT PRIMARY KEY,
  section TEXT NOT NULL,
  content TEXT NOT NULL,
  question_ids_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS passages_section_idx ON passages(section);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  passage_id TEXT REFERENCES passages(id),
  section TEXT NOT NULL,
  text TEXT NOT NULL,
  options_json TEXT NOT NULL,
  correct_json TEXT NOT NULL,
  positive_marks DOUBLE PRECISION NOT NULL DEFAULT 1,
  negative_marks DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tests (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  title TEXT NOT NULL,
  type TEXT NOT NULL,
  section TEXT,
  duration_minutes INTEGER NOT NULL,
  passage_ids_json TEXT NOT NULL,
  question_ids_json TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS tests_user_idx ON tests(user_id, created_at);

CREATE TABLE IF NOT EXISTS test_attempts (
  id TEXT PRIMARY KEY,
  test_id TEXT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  attempt_number INTEGER NOT NULL,
  is_latest BOOLEAN NOT NULL DEFAULT FALSE,
  answers_json TEXT NOT NULL,
  question_times_json TEXT NOT NULL,
  total_questions INTEGER NOT NULL,
  completed BOOLEAN NOT NULL DEFAULT FALSE,
  score DOUBLE PRECISION NOT NULL DEFAULT 0,
  percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
  correct_answers INTEGER NOT NULL DEFAULT 0,
  wrong_answers INTEGER NOT NULL DEFAULT 0,
  unattempted INTEGER NOT NULL DEFAULT 0,
  total_attempted INTEGER NOT NULL DEFAULT 0,
  total_time_sec INTEGER NOT NULL DEFAULT 0,
  started_at BIGINT NOT NULL,
  completed_at BIGINT
);
CREATE UNIQUE INDEX IF NOT EXISTS attempts_latest_idx ON test_attempts(test_id, user_id) WHERE is_latest;
CREATE INDEX IF NOT EXISTS attempts_test_user_idx ON test_attempts(test_id, user_id, attempt_number);

CREATE TABLE IF NOT EXISTS event_log (
  "offset" BIGSERIAL PRIMARY KEY,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
