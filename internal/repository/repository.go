package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Repository это реализация DocumentStore поверх PostgreSQL
type Repository struct {
	db           *pgxpool.Pool
	displayNames *DisplayNameRepo
	messages     *MessageRepo
	renames      *RenameRepo
}

func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	db, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return newRepository(db), nil
}

func newRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		db:           db,
		displayNames: NewDisplayNameRepo(db),
		messages:     NewMessageRepo(db),
		renames:      NewRenameRepo(db),
	}
}

// NewRepositoryFromPool оборачивает уже открытый пул (используется в тестах)
func NewRepositoryFromPool(db *pgxpool.Pool) *Repository {
	return newRepository(db)
}

const schema = `
CREATE TABLE IF NOT EXISTS display_names (
	key          TEXT PRIMARY KEY,
	path         TEXT NOT NULL DEFAULT '',
	gallery_id   TEXT NOT NULL DEFAULT '',
	display_name TEXT NOT NULL,
	type         TEXT NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS received_emails (
	id          TEXT PRIMARY KEY,
	from_addr   TEXT NOT NULL DEFAULT '',
	to_addr     TEXT NOT NULL DEFAULT '',
	subject     TEXT NOT NULL DEFAULT '',
	text_body   TEXT NOT NULL DEFAULT '',
	html_body   TEXT NOT NULL DEFAULT '',
	received_at TIMESTAMPTZ NOT NULL,
	status      TEXT NOT NULL DEFAULT 'unread',
	source      TEXT NOT NULL DEFAULT 'webhook',
	payload     JSONB
);

CREATE INDEX IF NOT EXISTS received_emails_received_at_idx ON received_emails (received_at DESC);

CREATE TABLE IF NOT EXISTS gallery_renames (
	id           TEXT PRIMARY KEY,
	from_slug    TEXT NOT NULL,
	to_slug      TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	state        TEXT NOT NULL,
	keys         TEXT[] NOT NULL DEFAULT '{}',
	copied       TEXT[] NOT NULL DEFAULT '{}',
	error        TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);
`

// Migrate создает таблицы, если их нет
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("repository.Migrate: %w", err)
	}
	return nil
}

func (r *Repository) DisplayNames() DisplayNameRepository { return r.displayNames }
func (r *Repository) Messages() MessageRepository         { return r.messages }
func (r *Repository) Renames() RenameRepository           { return r.renames }

func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *Repository) Close(_ context.Context) error {
	r.db.Close()
	return nil
}
