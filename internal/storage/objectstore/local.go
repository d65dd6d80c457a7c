package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"ali_portfolio/internal/storage"
)

// LocalStore реализация для локальной файловой системы
type LocalStore struct {
	baseDir string // Базовый каталог для хранения (например: "./uploads")
	baseURL string // Базовый URL для доступа к файлам (например: "http://localhost:8080/uploads")
}

func NewLocalStore(baseDir, baseURL string) (*LocalStore, error) {
	// Создаем директорию, если она не существует
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &LocalStore{
		baseDir: baseDir,
		baseURL: baseURL,
	}, nil
}

func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	filePath, err := s.fullPath(key)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
			return fmt.Errorf("failed to create directories: %w", err)
		}
	}

	// Пишем во временный файл и переименовываем, чтобы читатели не видели половину файла
	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer os.Remove(tmp.Name())

	done := make(chan struct{})
	var copyErr error

	go func() {
		_, copyErr = io.Copy(tmp, r)
		close(done)
	}()

	select {
	case <-done:
		if closeErr := tmp.Close(); copyErr == nil {
			copyErr = closeErr
		}
		if copyErr != nil {
			return fmt.Errorf("failed to copy file: %w", copyErr)
		}
	case <-ctx.Done():
		tmp.Close()
		return ctx.Err()
	}

	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	return nil
}

func (s *LocalStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	filePath, err := s.fullPath(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrObjectNotFound
		}
		return nil, err
	}

	return f, nil
}

func (s *LocalStore) Stat(_ context.Context, key string) (Object, error) {
	filePath, err := s.fullPath(key)
	if err != nil {
		return Object{}, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Object{}, storage.ErrObjectNotFound
		}
		return Object{}, err
	}
	if info.IsDir() {
		return Object{}, storage.ErrObjectNotFound
	}

	cleaned, _ := CleanKey(key)

	return s.object(cleaned, info), nil
}

// Delete удаляет файл и пустые родительские каталоги
func (s *LocalStore) Delete(_ context.Context, key string) error {
	filePath, err := s.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	base, _ := filepath.Abs(s.baseDir)
	for dir := filepath.Dir(filePath); ; dir = filepath.Dir(dir) {
		abs, _ := filepath.Abs(dir)
		if abs == base || len(abs) <= len(base) {
			break
		}
		// os.Remove fails on non-empty directories, which ends the walk
		if os.Remove(dir) != nil {
			break
		}
	}

	return nil
}

func (s *LocalStore) List(_ context.Context, prefix string) (Listing, error) {
	dir := s.baseDir
	cleaned := ""
	if prefix != "" {
		var err error
		cleaned, err = CleanKey(prefix)
		if err != nil {
			return Listing{}, err
		}
		dir = filepath.Join(s.baseDir, filepath.FromSlash(cleaned))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Listing{}, nil
		}
		return Listing{}, err
	}

	var l Listing
	for _, e := range entries {
		key := path.Join(cleaned, e.Name())
		if e.IsDir() {
			l.Prefixes = append(l.Prefixes, key)
			continue
		}
		if strings.HasPrefix(e.Name(), ".upload-") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		l.Objects = append(l.Objects, s.object(key, info))
	}
	sortListing(&l)

	return l, nil
}

// URL возвращает публичный адрес файла
func (s *LocalStore) URL(_ context.Context, key string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return publicURL(s.baseURL, cleaned), nil
}

func (s *LocalStore) Ping(_ context.Context) error {
	_, err := os.Stat(s.baseDir)
	return err
}

func (s *LocalStore) fullPath(key string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(cleaned)), nil
}

func (s *LocalStore) object(key string, info os.FileInfo) Object {
	return Object{
		Key:         key,
		Name:        info.Name(),
		Size:        info.Size(),
		ContentType: mime.TypeByExtension(path.Ext(key)),
		UpdatedAt:   info.ModTime(),
	}
}
