package store

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store on top of PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store backed by an open connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ConnectPostgres establishes a connection to PostgreSQL.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id              TEXT PRIMARY KEY,
	username        TEXT NOT NULL,
	email           TEXT NOT NULL UNIQUE,
	password_hash   TEXT NOT NULL,
	role            TEXT NOT NULL DEFAULT 'user',
	is_active       BOOLEAN NOT NULL DEFAULT TRUE,
	email_verified  BOOLEAN NOT NULL DEFAULT FALSE,
	avatar_url      TEXT NOT NULL DEFAULT '',
	verify_code     TEXT NOT NULL DEFAULT '',
	verify_expires  TIMESTAMPTZ,
	reset_code      TEXT NOT NULL DEFAULT '',
	reset_expires   TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS accessories (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	price        DOUBLE PRECISION NOT NULL,
	image_url    TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL DEFAULT '',
	stock        INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
	is_published BOOLEAN NOT NULL DEFAULT FALSE,
	created_by   TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS cars (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	brand        TEXT NOT NULL DEFAULT '',
	model        TEXT NOT NULL DEFAULT '',
	year         INTEGER NOT NULL DEFAULT 0,
	price        DOUBLE PRECISION NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	image_url    TEXT NOT NULL DEFAULT '',
	is_published BOOLEAN NOT NULL DEFAULT FALSE,
	created_by   TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS cart_lines (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL REFERENCES users(id),
	accessory_id TEXT NOT NULL REFERENCES accessories(id),
	quantity     INTEGER NOT NULL CHECK (quantity >= 1),
	added_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT cart_lines_user_accessory_key UNIQUE (user_id, accessory_id)
);

CREATE TABLE IF NOT EXISTS purchases (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL REFERENCES users(id),
	total_amount   DOUBLE PRECISION NOT NULL,
	invoice_number TEXT NOT NULL UNIQUE,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS purchase_items (
	id                TEXT PRIMARY KEY,
	purchase_id       TEXT NOT NULL REFERENCES purchases(id),
	accessory_id      TEXT NOT NULL REFERENCES accessories(id),
	accessory_name    TEXT NOT NULL DEFAULT '',
	quantity          INTEGER NOT NULL CHECK (quantity >= 1),
	price_at_purchase DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS consultations (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL REFERENCES users(id),
	advisor_id  TEXT REFERENCES users(id),
	subject     TEXT NOT NULL DEFAULT '',
	message     TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	answered_at TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	sender_id       TEXT NOT NULL REFERENCES users(id),
	receiver_id     TEXT NOT NULL REFERENCES users(id),
	consultation_id TEXT NOT NULL REFERENCES consultations(id),
	content         TEXT NOT NULL,
	is_read         BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS messages_consultation_idx ON messages (consultation_id, created_at);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id),
	title      TEXT NOT NULL,
	message    TEXT NOT NULL,
	is_read    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the tables if they do not exist yet.
func (s *PostgresStore) EnsureSchema() error {
	_, err := s.db.Exec(schema)
	return err
}
