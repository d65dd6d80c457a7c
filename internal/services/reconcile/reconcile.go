package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/lib/logger/sl"
	"ali_portfolio/internal/metrics"
	"ali_portfolio/internal/repository"
	"ali_portfolio/internal/storage"
	"ali_portfolio/internal/storage/objectstore"
)

// Reconciler удаляет записи оверлея, у которых больше нет объекта в хранилище
type Reconciler struct {
	log      *slog.Logger
	store    objectstore.Store
	names    repository.DisplayNameRepository
	interval time.Duration
}

func New(log *slog.Logger, store objectstore.Store, names repository.DisplayNameRepository, interval time.Duration) *Reconciler {
	return &Reconciler{
		log:      log,
		store:    store,
		names:    names,
		interval: interval,
	}
}

// Run выполняет проход сразу и затем по таймеру, пока ctx не отменен.
// interval <= 0 отключает сверку.
func (r *Reconciler) Run(ctx context.Context) error {
	if r.interval <= 0 {
		return nil
	}

	r.runLogged(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.runLogged(ctx)
		}
	}
}

func (r *Reconciler) runLogged(ctx context.Context) {
	removed, err := r.RunOnce(ctx)
	if err != nil {
		r.log.Error("overlay reconcile failed", sl.Err(err))
		return
	}
	if removed > 0 {
		r.log.Info("overlay reconcile removed orphans", slog.Int("removed", removed))
	}
}

// RunOnce возвращает число удаленных записей
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	const op = "reconcile.Reconciler.RunOnce"
	log := r.log.With(slog.String("op", op))

	removed := 0

	videos, err := r.names.ListDisplayNames(ctx, models.DisplayNameVideo)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	for _, dn := range videos {
		if dn.Path == "" {
			continue
		}
		_, err := r.store.Stat(ctx, dn.Path)
		switch {
		case err == nil:
			continue
		case errors.Is(err, storage.ErrObjectNotFound), errors.Is(err, storage.ErrInvalidKey):
		default:
			return removed, fmt.Errorf("%s: %w", op, err)
		}

		if err := r.remove(ctx, dn); err != nil {
			return removed, fmt.Errorf("%s: %w", op, err)
		}
		log.Debug("removed orphaned video name", slog.String("path", dn.Path))
		removed++
	}

	galleries, err := r.names.ListDisplayNames(ctx, models.DisplayNameGallery)
	if err != nil {
		return removed, fmt.Errorf("%s: %w", op, err)
	}
	for _, dn := range galleries {
		if dn.GalleryID == "" {
			continue
		}
		l, err := r.store.List(ctx, "photos/"+dn.GalleryID)
		if err != nil {
			return removed, fmt.Errorf("%s: %w", op, err)
		}
		if len(l.Objects) > 0 || len(l.Prefixes) > 0 {
			continue
		}

		if err := r.remove(ctx, dn); err != nil {
			return removed, fmt.Errorf("%s: %w", op, err)
		}
		log.Debug("removed orphaned gallery name", slog.String("gallery", dn.GalleryID))
		removed++
	}

	return removed, nil
}

func (r *Reconciler) remove(ctx context.Context, dn models.DisplayName) error {
	if err := r.names.DeleteDisplayName(ctx, dn.Key); err != nil {
		return err
	}
	metrics.OverlayOrphansRemoved.Inc()
	return nil
}
