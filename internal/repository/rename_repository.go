package repository

import (
	"context"
	"errors"
	"fmt"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/storage"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/lib/pq"
)

type RenameRepo struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func NewRenameRepo(db *pgxpool.Pool) *RenameRepo {
	return &RenameRepo{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var renameColumns = []string{
	"id", "from_slug", "to_slug", "display_name", "state",
	"keys", "copied", "error", "created_at", "updated_at",
}

// SaveRename записывает намерение целиком (insert или update)
func (r *RenameRepo) SaveRename(ctx context.Context, intent models.RenameIntent) error {
	const op = "repository.RenameRepo.SaveRename"

	keys := intent.Keys
	if keys == nil {
		keys = []string{}
	}
	copied := intent.Copied
	if copied == nil {
		copied = []string{}
	}

	query, args, err := r.sb.Insert("gallery_renames").
		Columns(renameColumns...).
		Values(
			intent.ID,
			intent.FromSlug,
			intent.ToSlug,
			intent.DisplayName,
			string(intent.State),
			pq.Array(keys),
			pq.Array(copied),
			intent.Error,
			intent.CreatedAt,
			intent.UpdatedAt,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			keys = EXCLUDED.keys,
			copied = EXCLUDED.copied,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RenameRepo) GetRename(ctx context.Context, id string) (models.RenameIntent, error) {
	const op = "repository.RenameRepo.GetRename"

	query, args, err := r.sb.Select(renameColumns...).
		From("gallery_renames").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.RenameIntent{}, fmt.Errorf("%s: %w", op, err)
	}

	intent, err := scanRename(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RenameIntent{}, fmt.Errorf("%s: %w", op, storage.ErrRenameNotFound)
		}
		return models.RenameIntent{}, fmt.Errorf("%s: %w", op, err)
	}

	return intent, nil
}

// ListUnfinishedRenames возвращает намерения, которые не завершены и не откачены
func (r *RenameRepo) ListUnfinishedRenames(ctx context.Context) ([]models.RenameIntent, error) {
	const op = "repository.RenameRepo.ListUnfinishedRenames"

	query, args, err := r.sb.Select(renameColumns...).
		From("gallery_renames").
		Where(squirrel.NotEq{"state": []string{
			string(models.RenameCompleted),
			string(models.RenameRolledBack),
		}}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	intents := make([]models.RenameIntent, 0)
	for rows.Next() {
		intent, err := scanRename(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		intents = append(intents, intent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return intents, nil
}

func scanRename(row pgx.Row) (models.RenameIntent, error) {
	var (
		intent models.RenameIntent
		state  string
	)
	err := row.Scan(
		&intent.ID,
		&intent.FromSlug,
		&intent.ToSlug,
		&intent.DisplayName,
		&state,
		pq.Array(&intent.Keys),
		pq.Array(&intent.Copied),
		&intent.Error,
		&intent.CreatedAt,
		&intent.UpdatedAt,
	)
	intent.State = models.RenameState(state)
	return intent, err
}
