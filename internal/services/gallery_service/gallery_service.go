package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/lib/logger/sl"
	"ali_portfolio/internal/metrics"
	"ali_portfolio/internal/repository"
	"ali_portfolio/internal/storage/objectstore"

	"golang.org/x/sync/errgroup"
)

const (
	photosRoot      = "photos"
	placeholderName = ".placeholder"
)

var ImageExts = []string{"jpg", "jpeg", "png", "gif", "webp"}

var (
	ErrEmptyName           = errors.New("gallery name is empty")
	ErrInvalidGallery      = errors.New("invalid gallery id")
	ErrGalleryNotFound     = errors.New("gallery not found")
	ErrGalleryExists       = errors.New("target gallery already exists")
	ErrRenameInProgress    = errors.New("another rename touches this gallery")
	ErrInvalidRenameState  = errors.New("rename cannot be changed in its current state")
	ErrRenameIncomplete    = errors.New("rename copied but originals were not fully removed")
	ErrCompensationFailed  = errors.New("rename failed and new copies could not be removed")
	ErrEmptyDisplayName    = errors.New("display name is empty")
	ErrRenameAlreadyActive = errors.New("rename is already running")
)

// Overlay это часть оверлея имен, нужная галереям
type Overlay interface {
	ResolveGallery(ctx context.Context, slug, fallback string) string
	SetGalleryName(ctx context.Context, slug, name string) error
	MoveGallery(ctx context.Context, from, to, name string) error
}

type Config struct {
	ScanConcurrency int
	RenameTimeout   time.Duration
}

type GalleryService struct {
	log     *slog.Logger
	store   objectstore.Store
	overlay Overlay
	renames repository.RenameRepository
	cfg     Config
	now     func() time.Time

	mu     sync.Mutex
	active map[string]struct{} // slugs with a rename running in this process
}

func NewGalleryService(
	log *slog.Logger,
	store objectstore.Store,
	overlay Overlay,
	renames repository.RenameRepository,
	cfg Config,
) *GalleryService {
	if cfg.ScanConcurrency <= 0 {
		cfg.ScanConcurrency = 8
	}
	if cfg.RenameTimeout <= 0 {
		cfg.RenameTimeout = 10 * time.Minute
	}

	return &GalleryService{
		log:     log,
		store:   store,
		overlay: overlay,
		renames: renames,
		cfg:     cfg,
		now:     time.Now,
		active:  make(map[string]struct{}),
	}
}

// Slugify: нижний регистр, пробельные последовательности -> "_"
func Slugify(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	return strings.ToLower(strings.Join(strings.Fields(name), "_"))
}

// DefaultName восстанавливает имя из слага
func DefaultName(slug string) string {
	return strings.ReplaceAll(slug, "_", " ")
}

func galleryPrefix(slug string) string {
	return photosRoot + "/" + slug
}

func validSlug(slug string) bool {
	return slug != "" && slug != "." && slug != ".." && !strings.ContainsAny(slug, "/\\")
}

// ListGalleries возвращает папки в photos/ с обложкой и именем.
// Ошибки хранилища логируются, результат при этом пустой.
func (s *GalleryService) ListGalleries(ctx context.Context) []models.Gallery {
	const op = "service.GalleryService.ListGalleries"
	log := s.log.With(slog.String("op", op))

	root, err := s.store.List(ctx, photosRoot)
	if err != nil {
		log.Error("failed to list galleries", sl.Err(err))
		return []models.Gallery{}
	}

	now := s.now()
	galleries := make([]models.Gallery, len(root.Prefixes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ScanConcurrency)

	for i, prefix := range root.Prefixes {
		i, prefix := i, prefix
		g.Go(func() error {
			slug := objectstore.Base(prefix)

			cover, err := s.coverImage(gctx, prefix)
			if err != nil {
				return fmt.Errorf("scan %s: %w", slug, err)
			}

			galleries[i] = models.Gallery{
				ID:         slug,
				Name:       s.overlay.ResolveGallery(gctx, slug, DefaultName(slug)),
				CoverImage: cover,
				CreatedAt:  now,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("failed to scan galleries", sl.Err(err))
		return []models.Gallery{}
	}

	return galleries
}

func (s *GalleryService) coverImage(ctx context.Context, prefix string) (string, error) {
	l, err := s.store.List(ctx, prefix)
	if err != nil {
		return "", err
	}

	for _, obj := range l.Objects {
		if objectstore.HasExt(obj.Key, ImageExts...) {
			return s.store.URL(ctx, obj.Key)
		}
	}

	return "", nil
}

// CreateGallery создает папку галереи через пустой объект-заглушку
func (s *GalleryService) CreateGallery(ctx context.Context, name string) (models.Gallery, error) {
	const op = "service.GalleryService.CreateGallery"
	log := s.log.With(
		slog.String("op", op),
		slog.String("name", name),
	)

	slug := Slugify(name)
	if !validSlug(slug) {
		log.Warn("empty gallery name")
		return models.Gallery{}, fmt.Errorf("%s: %w", op, ErrEmptyName)
	}

	log.Info("creating gallery", slog.String("slug", slug))

	key := galleryPrefix(slug) + "/" + placeholderName
	if err := s.store.Put(ctx, key, strings.NewReader(""), 0, "text/plain"); err != nil {
		log.Error("failed to create gallery", sl.Err(err))
		return models.Gallery{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("gallery created successfully", slog.String("id", slug))

	return models.Gallery{
		ID:        slug,
		Name:      DefaultName(slug),
		CreatedAt: s.now(),
	}, nil
}

// UploadPhoto сохраняет фото под именем с префиксом времени
func (s *GalleryService) UploadPhoto(
	ctx context.Context,
	galleryID string,
	filename string,
	r io.Reader,
	size int64,
	contentType string,
) (models.Photo, error) {
	const op = "service.GalleryService.UploadPhoto"
	log := s.log.With(
		slog.String("op", op),
		slog.String("gallery_id", galleryID),
		slog.String("filename", filename),
	)

	if !validSlug(galleryID) {
		return models.Photo{}, fmt.Errorf("%s: %w", op, ErrInvalidGallery)
	}

	base := objectstore.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "" || base == "." || base == "/" || base == ".." {
		base = "upload"
	}
	name := fmt.Sprintf("%d_%s", s.now().UnixMilli(), base)
	key := galleryPrefix(galleryID) + "/" + name

	if contentType == "" || contentType == "application/octet-stream" {
		ct, rr, err := objectstore.DetectContentType(r)
		if err != nil {
			return models.Photo{}, fmt.Errorf("%s: %w", op, err)
		}
		contentType, r = ct, rr
	}

	if err := s.store.Put(ctx, key, r, size, contentType); err != nil {
		log.Error("failed to upload photo", sl.Err(err))
		return models.Photo{}, fmt.Errorf("%s: %w", op, err)
	}

	url, err := s.store.URL(ctx, key)
	if err != nil {
		log.Error("failed to resolve photo url", sl.Err(err))
		return models.Photo{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.Uploads.WithLabelValues("photo").Inc()
	log.Info("photo uploaded", slog.String("key", key))

	return models.Photo{
		ID:        name,
		GalleryID: galleryID,
		Name:      name,
		Path:      key,
		URL:       url,
	}, nil
}

// ListPhotos возвращает изображения одной галереи в лексическом порядке
func (s *GalleryService) ListPhotos(ctx context.Context, galleryID string) ([]models.Photo, error) {
	const op = "service.GalleryService.ListPhotos"

	if !validSlug(galleryID) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidGallery)
	}

	l, err := s.store.List(ctx, galleryPrefix(galleryID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	photos := make([]models.Photo, 0, len(l.Objects))
	for _, obj := range l.Objects {
		if !objectstore.HasExt(obj.Key, ImageExts...) {
			continue
		}
		url, err := s.store.URL(ctx, obj.Key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		photos = append(photos, models.Photo{
			ID:        obj.Name,
			GalleryID: galleryID,
			Name:      obj.Name,
			Path:      obj.Key,
			URL:       url,
		})
	}

	return photos, nil
}

// RenameGalleryDisplayName меняет только отображаемое имя, папка остается прежней
func (s *GalleryService) RenameGalleryDisplayName(ctx context.Context, galleryID, name string) error {
	const op = "service.GalleryService.RenameGalleryDisplayName"

	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyDisplayName)
	}
	if !validSlug(galleryID) {
		return fmt.Errorf("%s: %w", op, ErrInvalidGallery)
	}

	if err := s.overlay.SetGalleryName(ctx, galleryID, name); err != nil {
		s.log.Error("failed to save gallery display name", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
