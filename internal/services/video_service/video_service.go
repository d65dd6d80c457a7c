package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/lib/logger/sl"
	"ali_portfolio/internal/metrics"
	"ali_portfolio/internal/storage"
	"ali_portfolio/internal/storage/objectstore"
)

const videosRoot = "videos"

var VideoExts = []string{"mp4", "webm", "mov", "avi"}

var (
	ErrInvalidVideoPath  = errors.New("invalid video path")
	ErrUnsupportedVideo  = errors.New("unsupported video format")
	ErrVideoNotFound     = errors.New("video not found")
	ErrEmptyVideoName    = errors.New("video name is empty")
	ErrOverlayNotRemoved = errors.New("video deleted but its display name was not removed")
)

// Overlay это часть оверлея имен, нужная видео
type Overlay interface {
	ResolveVideo(ctx context.Context, path, fallback string) string
	SetVideoName(ctx context.Context, path, name string) error
	DeleteVideo(ctx context.Context, path string) error
}

type VideoService struct {
	log     *slog.Logger
	store   objectstore.Store
	overlay Overlay
	now     func() time.Time
}

func NewVideoService(log *slog.Logger, store objectstore.Store, overlay Overlay) *VideoService {
	return &VideoService{
		log:     log,
		store:   store,
		overlay: overlay,
		now:     time.Now,
	}
}

// DefaultName: имя файла без расширения, "_" -> пробел
func DefaultName(filename string) string {
	name := strings.TrimSuffix(filename, path.Ext(filename))
	return strings.ReplaceAll(name, "_", " ")
}

// ListVideosAdmin возвращает видео из корня videos/ и из папок первого уровня
func (s *VideoService) ListVideosAdmin(ctx context.Context) ([]models.Video, error) {
	const op = "service.VideoService.ListVideosAdmin"

	videos := make([]models.Video, 0)
	err := s.walk(ctx, func(id string, obj objectstore.Object, url string) {
		videos = append(videos, models.Video{
			ID:   id,
			Name: s.overlay.ResolveVideo(ctx, obj.Key, DefaultName(obj.Name)),
			URL:  url,
			Path: obj.Key,
		})
	})
	if err != nil {
		s.log.Error("failed to list videos", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return videos, nil
}

// ListPortfolioVideos отдает те же видео в формате публичной витрины
func (s *VideoService) ListPortfolioVideos(ctx context.Context) ([]models.PortfolioVideo, error) {
	const op = "service.VideoService.ListPortfolioVideos"

	videos := make([]models.PortfolioVideo, 0)
	err := s.walk(ctx, func(id string, obj objectstore.Object, url string) {
		videos = append(videos, models.PortfolioVideo{
			ID:        id,
			Title:     s.overlay.ResolveVideo(ctx, obj.Key, DefaultName(obj.Name)),
			Thumbnail: url,
			VideoURL:  url,
			Duration:  "0:00",
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return videos, nil
}

func (s *VideoService) walk(ctx context.Context, fn func(id string, obj objectstore.Object, url string)) error {
	root, err := s.store.List(ctx, videosRoot)
	if err != nil {
		return err
	}

	visit := func(idPrefix string, objects []objectstore.Object) error {
		for _, obj := range objects {
			if !objectstore.HasExt(obj.Key, VideoExts...) {
				continue
			}
			url, err := s.store.URL(ctx, obj.Key)
			if err != nil {
				return err
			}
			fn(idPrefix+obj.Name, obj, url)
		}
		return nil
	}

	if err := visit("", root.Objects); err != nil {
		return err
	}

	for _, prefix := range root.Prefixes {
		l, err := s.store.List(ctx, prefix)
		if err != nil {
			return err
		}
		if err := visit(objectstore.Base(prefix)+"-", l.Objects); err != nil {
			return err
		}
	}

	return nil
}

// UploadVideo сохраняет файл в videos/. Заголовок, если задан, попадает в имя файла.
func (s *VideoService) UploadVideo(
	ctx context.Context,
	filename string,
	r io.Reader,
	size int64,
	contentType string,
	title string,
) (models.Video, error) {
	const op = "service.VideoService.UploadVideo"
	log := s.log.With(
		slog.String("op", op),
		slog.String("filename", filename),
	)

	base := objectstore.Base(strings.ReplaceAll(filename, "\\", "/"))
	if !objectstore.HasExt(base, VideoExts...) {
		log.Warn("rejected video upload", slog.String("ext", path.Ext(base)))
		return models.Video{}, fmt.Errorf("%s: %w", op, ErrUnsupportedVideo)
	}

	ts := s.now().UnixMilli()
	var name string
	if title = strings.TrimSpace(title); title != "" {
		title = strings.Join(strings.Fields(strings.NewReplacer("/", " ", "\\", " ").Replace(title)), "_")
		name = fmt.Sprintf("%s_%d%s", title, ts, path.Ext(base))
	} else {
		name = fmt.Sprintf("%d_%s", ts, base)
	}
	key := videosRoot + "/" + name

	if contentType == "" || contentType == "application/octet-stream" {
		ct, rr, err := objectstore.DetectContentType(r)
		if err != nil {
			return models.Video{}, fmt.Errorf("%s: %w", op, err)
		}
		contentType, r = ct, rr
	}

	if err := s.store.Put(ctx, key, r, size, contentType); err != nil {
		log.Error("failed to upload video", sl.Err(err))
		return models.Video{}, fmt.Errorf("%s: %w", op, err)
	}

	url, err := s.store.URL(ctx, key)
	if err != nil {
		return models.Video{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.Uploads.WithLabelValues("video").Inc()
	log.Info("video uploaded", slog.String("key", key))

	return models.Video{
		ID:   name,
		Name: DefaultName(name),
		URL:  url,
		Path: key,
	}, nil
}

// RenameVideo пишет только запись оверлея, сам файл не трогается
func (s *VideoService) RenameVideo(ctx context.Context, videoPath, newName string) error {
	const op = "service.VideoService.RenameVideo"
	log := s.log.With(
		slog.String("op", op),
		slog.String("path", videoPath),
	)

	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyVideoName)
	}

	key, err := videoKey(videoPath)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.store.Stat(ctx, key); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return fmt.Errorf("%s: %w", op, ErrVideoNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.overlay.SetVideoName(ctx, key, newName); err != nil {
		log.Error("failed to save display name", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("video renamed", slog.String("name", newName))

	return nil
}

// DeleteVideo удаляет файл, затем его запись оверлея.
// Если оверлей удалить не удалось, запись подчистит reconcile.
func (s *VideoService) DeleteVideo(ctx context.Context, videoPath string) error {
	const op = "service.VideoService.DeleteVideo"
	log := s.log.With(
		slog.String("op", op),
		slog.String("path", videoPath),
	)

	key, err := videoKey(videoPath)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.Delete(ctx, key); err != nil {
		log.Error("failed to delete video", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.overlay.DeleteVideo(ctx, key); err != nil {
		log.Warn("display name left behind", sl.Err(err))
		return fmt.Errorf("%s: %w: %w", op, ErrOverlayNotRemoved, err)
	}

	log.Info("video deleted")

	return nil
}

// videoKey принимает только videos/<file> и videos/<folder>/<file>
func videoKey(p string) (string, error) {
	key, err := objectstore.CleanKey(p)
	if err != nil {
		return "", ErrInvalidVideoPath
	}

	parts := strings.Split(key, "/")
	if parts[0] != videosRoot || len(parts) < 2 || len(parts) > 3 {
		return "", ErrInvalidVideoPath
	}
	if !objectstore.HasExt(key, VideoExts...) {
		return "", ErrUnsupportedVideo
	}

	return key, nil
}
