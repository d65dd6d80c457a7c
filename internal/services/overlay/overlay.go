package overlay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/lib/logger/sl"
	"ali_portfolio/internal/repository"
	"ali_portfolio/internal/storage"
)

const galleryKeyPrefix = "gallery_"

// Overlay отображает пути объектов на пользовательские имена
type Overlay struct {
	log  *slog.Logger
	repo repository.DisplayNameRepository
	now  func() time.Time
}

func New(log *slog.Logger, repo repository.DisplayNameRepository) *Overlay {
	return &Overlay{log: log, repo: repo, now: time.Now}
}

// VideoKey: "/" -> "_", "." -> "-"
func VideoKey(path string) string {
	return strings.NewReplacer("/", "_", ".", "-").Replace(path)
}

func GalleryKey(slug string) string {
	return galleryKeyPrefix + slug
}

// ResolveVideo возвращает имя из оверлея или fallback. Ошибки чтения не пробрасываются.
func (o *Overlay) ResolveVideo(ctx context.Context, path, fallback string) string {
	return o.resolve(ctx, VideoKey(path), fallback)
}

func (o *Overlay) ResolveGallery(ctx context.Context, slug, fallback string) string {
	return o.resolve(ctx, GalleryKey(slug), fallback)
}

func (o *Overlay) resolve(ctx context.Context, key, fallback string) string {
	dn, err := o.repo.GetDisplayName(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			o.log.Warn("display name lookup failed",
				slog.String("op", "overlay.resolve"),
				slog.String("key", key),
				sl.Err(err),
			)
		}
		return fallback
	}
	if dn.DisplayName == "" {
		return fallback
	}
	return dn.DisplayName
}

func (o *Overlay) SetVideoName(ctx context.Context, path, name string) error {
	const op = "overlay.SetVideoName"

	err := o.repo.SaveDisplayName(ctx, models.DisplayName{
		Key:         VideoKey(path),
		Path:        path,
		DisplayName: name,
		Type:        models.DisplayNameVideo,
		UpdatedAt:   o.now(),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (o *Overlay) SetGalleryName(ctx context.Context, slug, name string) error {
	const op = "overlay.SetGalleryName"

	err := o.repo.SaveDisplayName(ctx, models.DisplayName{
		Key:         GalleryKey(slug),
		GalleryID:   slug,
		DisplayName: name,
		Type:        models.DisplayNameGallery,
		UpdatedAt:   o.now(),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (o *Overlay) DeleteVideo(ctx context.Context, path string) error {
	return o.Delete(ctx, VideoKey(path))
}

func (o *Overlay) DeleteGallery(ctx context.Context, slug string) error {
	return o.Delete(ctx, GalleryKey(slug))
}

func (o *Overlay) Delete(ctx context.Context, key string) error {
	if err := o.repo.DeleteDisplayName(ctx, key); err != nil {
		return fmt.Errorf("overlay.Delete: %w", err)
	}
	return nil
}

// MoveGallery переносит запись оверлея со старого слага на новый.
// Если записи не было, на новом слаге сохраняется name (когда задан).
func (o *Overlay) MoveGallery(ctx context.Context, from, to, name string) error {
	const op = "overlay.MoveGallery"

	if name == "" {
		dn, err := o.repo.GetDisplayName(ctx, GalleryKey(from))
		switch {
		case err == nil:
			name = dn.DisplayName
		case !errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if name != "" {
		if err := o.SetGalleryName(ctx, to, name); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if from != to {
		if err := o.DeleteGallery(ctx, from); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

func (o *Overlay) List(ctx context.Context, typ models.DisplayNameType) ([]models.DisplayName, error) {
	return o.repo.ListDisplayNames(ctx, typ)
}
