package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/lib/logger/sl"
	"ali_portfolio/internal/metrics"
	"ali_portfolio/internal/storage"

	"github.com/google/uuid"
)

// RenameGallery переносит папку галереи под новый слаг.
// Сначала намерение сохраняется, затем объекты копируются, и только после
// копирования всех объектов удаляются оригиналы. Ошибка копирования
// откатывает уже созданные копии.
func (s *GalleryService) RenameGallery(ctx context.Context, oldSlug, newName string) (models.RenameIntent, error) {
	const op = "service.GalleryService.RenameGallery"
	log := s.log.With(
		slog.String("op", op),
		slog.String("from", oldSlug),
		slog.String("name", newName),
	)

	if !validSlug(oldSlug) {
		return models.RenameIntent{}, fmt.Errorf("%s: %w", op, ErrInvalidGallery)
	}

	newSlug := Slugify(newName)
	if !validSlug(newSlug) {
		return models.RenameIntent{}, fmt.Errorf("%s: %w", op, ErrEmptyName)
	}
	displayName := strings.TrimSpace(newName)

	if newSlug == oldSlug {
		log.Info("slug unchanged, renaming display name only")

		if err := s.overlay.SetGalleryName(ctx, oldSlug, displayName); err != nil {
			return models.RenameIntent{}, fmt.Errorf("%s: %w", op, err)
		}
		now := s.now()
		return models.RenameIntent{
			FromSlug:    oldSlug,
			ToSlug:      newSlug,
			DisplayName: displayName,
			State:       models.RenameCompleted,
			CreatedAt:   now,
			UpdatedAt:   now,
		}, nil
	}

	if !s.acquire(oldSlug, newSlug) {
		return models.RenameIntent{}, fmt.Errorf("%s: %w", op, ErrRenameInProgress)
	}
	defer s.release(oldSlug, newSlug)

	unfinished, err := s.renames.ListUnfinishedRenames(ctx)
	if err != nil {
		log.Error("failed to list unfinished renames", sl.Err(err))
		return models.RenameIntent{}, fmt.Errorf("%s: %w", op, err)
	}
	for _, other := range unfinished {
		if other.Touches(oldSlug) || other.Touches(newSlug) {
			log.Warn("rename blocked by unfinished intent", slog.String("intent", other.ID))
			return models.RenameIntent{}, fmt.Errorf("%s: %w", op, ErrRenameInProgress)
		}
	}

	source, err := s.store.List(ctx, galleryPrefix(oldSlug))
	if err != nil {
		return models.RenameIntent{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(source.Objects) == 0 {
		return models.RenameIntent{}, fmt.Errorf("%s: %w", op, ErrGalleryNotFound)
	}

	target, err := s.store.List(ctx, galleryPrefix(newSlug))
	if err != nil {
		return models.RenameIntent{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(target.Objects) > 0 || len(target.Prefixes) > 0 {
		return models.RenameIntent{}, fmt.Errorf("%s: %w", op, ErrGalleryExists)
	}

	keys := make([]string, 0, len(source.Objects))
	for _, obj := range source.Objects {
		keys = append(keys, obj.Key)
	}

	now := s.now()
	intent := models.RenameIntent{
		ID:          uuid.NewString(),
		FromSlug:    oldSlug,
		ToSlug:      newSlug,
		DisplayName: displayName,
		State:       models.RenamePending,
		Keys:        keys,
		Copied:      []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.renames.SaveRename(ctx, intent); err != nil {
		log.Error("failed to persist rename intent", sl.Err(err))
		return models.RenameIntent{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("rename started", slog.String("intent", intent.ID), slog.Int("objects", len(keys)))

	// the saga must not stop halfway because the client went away
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RenameTimeout)
	defer cancel()

	return s.execute(rctx, intent)
}

// ListPendingRenames возвращает незавершенные переименования
func (s *GalleryService) ListPendingRenames(ctx context.Context) ([]models.RenameIntent, error) {
	const op = "service.GalleryService.ListPendingRenames"

	intents, err := s.renames.ListUnfinishedRenames(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return intents, nil
}

// ReportPendingRenames пишет в лог незавершенные переименования (вызывается при старте)
func (s *GalleryService) ReportPendingRenames(ctx context.Context) {
	intents, err := s.ListPendingRenames(ctx)
	if err != nil {
		s.log.Error("failed to check unfinished renames", sl.Err(err))
		return
	}
	for _, intent := range intents {
		s.log.Warn("unfinished gallery rename",
			slog.String("intent", intent.ID),
			slog.String("from", intent.FromSlug),
			slog.String("to", intent.ToSlug),
			slog.String("state", string(intent.State)),
			slog.Int("copied", len(intent.Copied)),
			slog.Int("total", len(intent.Keys)),
		)
	}
}

// ResumeRename продолжает прерванное переименование с сохраненного шага
func (s *GalleryService) ResumeRename(ctx context.Context, id string) (models.RenameIntent, error) {
	const op = "service.GalleryService.ResumeRename"

	intent, err := s.renames.GetRename(ctx, id)
	if err != nil {
		return models.RenameIntent{}, fmt.Errorf("%s: %w", op, err)
	}

	switch intent.State {
	case models.RenamePending, models.RenameCopying, models.RenameCopied:
	default:
		return intent, fmt.Errorf("%s: %w", op, ErrInvalidRenameState)
	}

	if !s.acquire(intent.FromSlug, intent.ToSlug) {
		return intent, fmt.Errorf("%s: %w", op, ErrRenameAlreadyActive)
	}
	defer s.release(intent.FromSlug, intent.ToSlug)

	s.log.Info("resuming rename", slog.String("op", op), slog.String("intent", id), slog.String("state", string(intent.State)))

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RenameTimeout)
	defer cancel()

	return s.execute(rctx, intent)
}

// RollbackRename удаляет новые копии. После фазы копирования откат запрещен,
// так как оригиналы уже могли быть удалены.
func (s *GalleryService) RollbackRename(ctx context.Context, id string) (models.RenameIntent, error) {
	const op = "service.GalleryService.RollbackRename"

	intent, err := s.renames.GetRename(ctx, id)
	if err != nil {
		return models.RenameIntent{}, fmt.Errorf("%s: %w", op, err)
	}

	switch intent.State {
	case models.RenamePending, models.RenameCopying, models.RenameFailed:
	default:
		return intent, fmt.Errorf("%s: %w", op, ErrInvalidRenameState)
	}

	if !s.acquire(intent.FromSlug, intent.ToSlug) {
		return intent, fmt.Errorf("%s: %w", op, ErrRenameAlreadyActive)
	}
	defer s.release(intent.FromSlug, intent.ToSlug)

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RenameTimeout)
	defer cancel()

	intent, err = s.compensate(rctx, intent, errors.New("rolled back by admin"))
	if errors.Is(err, ErrCompensationFailed) {
		return intent, fmt.Errorf("%s: %w", op, err)
	}

	return intent, nil
}

func (s *GalleryService) execute(ctx context.Context, intent models.RenameIntent) (models.RenameIntent, error) {
	const op = "service.GalleryService.execute"
	log := s.log.With(
		slog.String("op", op),
		slog.String("intent", intent.ID),
	)

	if intent.State == models.RenamePending || intent.State == models.RenameCopying {
		intent.State = models.RenameCopying
		if err := s.save(ctx, &intent); err != nil {
			return s.compensate(ctx, intent, err)
		}

		done := make(map[string]struct{}, len(intent.Copied))
		for _, k := range intent.Copied {
			done[k] = struct{}{}
		}

		for _, key := range intent.Keys {
			if _, ok := done[key]; ok {
				continue
			}
			if err := s.copyObject(ctx, key, targetKey(intent, key)); err != nil {
				log.Error("copy failed, compensating", slog.String("key", key), sl.Err(err))
				return s.compensate(ctx, intent, err)
			}
			intent.Copied = append(intent.Copied, key)
			if err := s.save(ctx, &intent); err != nil {
				return s.compensate(ctx, intent, err)
			}
		}

		intent.State = models.RenameCopied
		intent.Error = ""
		if err := s.save(ctx, &intent); err != nil {
			return s.compensate(ctx, intent, err)
		}
		log.Info("all objects copied", slog.Int("objects", len(intent.Keys)))
	}

	if intent.State != models.RenameCopied {
		return intent, fmt.Errorf("%s: %w", op, ErrInvalidRenameState)
	}

	// Past this point the rename only moves forward.
	for _, key := range intent.Keys {
		if err := s.store.Delete(ctx, key); err != nil {
			log.Error("failed to delete original", slog.String("key", key), sl.Err(err))
			return s.stall(ctx, intent, err)
		}
	}

	if err := s.overlay.MoveGallery(ctx, intent.FromSlug, intent.ToSlug, intent.DisplayName); err != nil {
		log.Error("failed to move display name", sl.Err(err))
		return s.stall(ctx, intent, err)
	}

	intent.State = models.RenameCompleted
	intent.Error = ""
	if err := s.save(ctx, &intent); err != nil {
		// objects are already in place; the intent stays visible as copied and a resume finishes it
		log.Error("failed to mark rename completed", sl.Err(err))
		return intent, fmt.Errorf("%s: %w", op, err)
	}

	metrics.GalleryRenames.WithLabelValues(string(models.RenameCompleted)).Inc()
	log.Info("rename completed", slog.String("from", intent.FromSlug), slog.String("to", intent.ToSlug))

	return intent, nil
}

// compensate удаляет копии в новой папке и помечает намерение откаченным
func (s *GalleryService) compensate(ctx context.Context, intent models.RenameIntent, cause error) (models.RenameIntent, error) {
	const op = "service.GalleryService.compensate"
	log := s.log.With(
		slog.String("op", op),
		slog.String("intent", intent.ID),
	)

	for _, key := range intent.Keys {
		if err := s.store.Delete(ctx, targetKey(intent, key)); err != nil {
			log.Error("compensation failed", slog.String("key", key), sl.Err(err))

			intent.State = models.RenameFailed
			intent.Error = fmt.Sprintf("%v; compensation: %v", cause, err)
			if serr := s.save(ctx, &intent); serr != nil {
				log.Error("failed to persist failed state", sl.Err(serr))
			}
			metrics.GalleryRenames.WithLabelValues(string(models.RenameFailed)).Inc()

			return intent, fmt.Errorf("%s: %w: %w", op, ErrCompensationFailed, cause)
		}
	}

	intent.State = models.RenameRolledBack
	intent.Copied = []string{}
	intent.Error = cause.Error()
	if err := s.save(ctx, &intent); err != nil {
		log.Error("failed to persist rolled back state", sl.Err(err))
	}

	metrics.GalleryRenames.WithLabelValues(string(models.RenameRolledBack)).Inc()
	log.Warn("rename rolled back", sl.Err(cause))

	return intent, fmt.Errorf("%s: %w", op, cause)
}

// stall оставляет намерение в состоянии copied, его можно продолжить позже
func (s *GalleryService) stall(ctx context.Context, intent models.RenameIntent, cause error) (models.RenameIntent, error) {
	intent.Error = cause.Error()
	if err := s.save(ctx, &intent); err != nil {
		s.log.Error("failed to persist rename error", slog.String("intent", intent.ID), sl.Err(err))
	}
	return intent, fmt.Errorf("service.GalleryService.execute: %w: %w", ErrRenameIncomplete, cause)
}

func (s *GalleryService) save(ctx context.Context, intent *models.RenameIntent) error {
	intent.UpdatedAt = s.now()
	return s.renames.SaveRename(ctx, *intent)
}

func (s *GalleryService) copyObject(ctx context.Context, src, dst string) error {
	obj, err := s.store.Stat(ctx, src)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return fmt.Errorf("source %s vanished: %w", src, err)
		}
		return err
	}

	rc, err := s.store.Get(ctx, src)
	if err != nil {
		return err
	}
	defer rc.Close()

	return s.store.Put(ctx, dst, rc, obj.Size, obj.ContentType)
}

func targetKey(intent models.RenameIntent, key string) string {
	return galleryPrefix(intent.ToSlug) + strings.TrimPrefix(key, galleryPrefix(intent.FromSlug))
}

func (s *GalleryService) acquire(slugs ...string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, slug := range slugs {
		if _, busy := s.active[slug]; busy {
			return false
		}
	}
	for _, slug := range slugs {
		s.active[slug] = struct{}{}
	}
	return true
}

func (s *GalleryService) release(slugs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, slug := range slugs {
		delete(s.active, slug)
	}
}
