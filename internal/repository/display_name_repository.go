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
)

type DisplayNameRepo struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func NewDisplayNameRepo(db *pgxpool.Pool) *DisplayNameRepo {
	return &DisplayNameRepo{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var displayNameColumns = []string{"key", "path", "gallery_id", "display_name", "type", "updated_at"}

// GetDisplayName возвращает запись оверлея по ключу
func (r *DisplayNameRepo) GetDisplayName(ctx context.Context, key string) (models.DisplayName, error) {
	const op = "repository.DisplayNameRepo.GetDisplayName"

	query, args, err := r.sb.Select(displayNameColumns...).
		From("display_names").
		Where(squirrel.Eq{"key": key}).
		ToSql()
	if err != nil {
		return models.DisplayName{}, fmt.Errorf("%s: %w", op, err)
	}

	dn, err := scanDisplayName(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.DisplayName{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return models.DisplayName{}, fmt.Errorf("%s: %w", op, err)
	}

	return dn, nil
}

// SaveDisplayName делает upsert, последняя запись побеждает
func (r *DisplayNameRepo) SaveDisplayName(ctx context.Context, dn models.DisplayName) error {
	const op = "repository.DisplayNameRepo.SaveDisplayName"

	query, args, err := r.sb.Insert("display_names").
		Columns(displayNameColumns...).
		Values(dn.Key, dn.Path, dn.GalleryID, dn.DisplayName, string(dn.Type), dn.UpdatedAt).
		Suffix(`ON CONFLICT (key) DO UPDATE SET
			path = EXCLUDED.path,
			gallery_id = EXCLUDED.gallery_id,
			display_name = EXCLUDED.display_name,
			type = EXCLUDED.type,
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

func (r *DisplayNameRepo) DeleteDisplayName(ctx context.Context, key string) error {
	const op = "repository.DisplayNameRepo.DeleteDisplayName"

	query, args, err := r.sb.Delete("display_names").
		Where(squirrel.Eq{"key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *DisplayNameRepo) ListDisplayNames(ctx context.Context, typ models.DisplayNameType) ([]models.DisplayName, error) {
	const op = "repository.DisplayNameRepo.ListDisplayNames"

	qb := r.sb.Select(displayNameColumns...).From("display_names").OrderBy("key")
	if typ != "" {
		qb = qb.Where(squirrel.Eq{"type": string(typ)})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []models.DisplayName
	for rows.Next() {
		dn, err := scanDisplayName(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, dn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func scanDisplayName(row pgx.Row) (models.DisplayName, error) {
	var (
		dn  models.DisplayName
		typ string
	)
	err := row.Scan(&dn.Key, &dn.Path, &dn.GalleryID, &dn.DisplayName, &typ, &dn.UpdatedAt)
	dn.Type = models.DisplayNameType(typ)
	return dn, err
}
