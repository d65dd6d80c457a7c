package objectstore

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"ali_portfolio/internal/storage"
)

type memObject struct {
	data        []byte
	contentType string
	updatedAt   time.Time
}

// MemoryStore keeps objects in process memory. Used for tests and
// throwaway local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
	baseURL string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memObject),
		baseURL: baseURL,
	}
}

func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) error {
	cleaned, err := CleanKey(key)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.objects[cleaned] = memObject{data: data, contentType: contentType, updatedAt: time.Now()}
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	obj, ok := s.objects[cleaned]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrObjectNotFound
	}

	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (s *MemoryStore) Stat(_ context.Context, key string) (Object, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return Object{}, err
	}

	s.mu.RLock()
	obj, ok := s.objects[cleaned]
	s.mu.RUnlock()
	if !ok {
		return Object{}, storage.ErrObjectNotFound
	}

	return toObject(cleaned, obj), nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	cleaned, err := CleanKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.objects, cleaned)
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) List(_ context.Context, prefix string) (Listing, error) {
	dir := dirPrefix(prefix)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var l Listing
	seen := make(map[string]struct{})
	for key, obj := range s.objects {
		if !strings.HasPrefix(key, dir) {
			continue
		}
		rest := key[len(dir):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			p := dir + rest[:i]
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				l.Prefixes = append(l.Prefixes, p)
			}
			continue
		}
		l.Objects = append(l.Objects, toObject(key, obj))
	}
	sortListing(&l)

	return l, nil
}

func (s *MemoryStore) URL(_ context.Context, key string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return publicURL(s.baseURL, cleaned), nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Keys returns every stored key, mostly for assertions.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}

func toObject(key string, obj memObject) Object {
	return Object{
		Key:         key,
		Name:        Base(key),
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		UpdatedAt:   obj.updatedAt,
	}
}
