package objectstore_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ali_portfolio/internal/storage"
	"ali_portfolio/internal/storage/objectstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLocalStore(t *testing.T) (*objectstore.LocalStore, string) {
	t.Helper()

	tempDir := t.TempDir()

	s, err := objectstore.NewLocalStore(tempDir, "http://test.local/uploads")
	require.NoError(t, err)

	return s, tempDir
}

func TestLocalStore_PutGet(t *testing.T) {
	s, tempDir := setupLocalStore(t)
	ctx := context.Background()

	t.Run("successful put", func(t *testing.T) {
		err := s.Put(ctx, "photos/wedding/1_a.jpg", strings.NewReader("test content"), 12, "image/jpeg")
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(tempDir, "photos", "wedding", "1_a.jpg"))
		require.NoError(t, err)
		assert.Equal(t, "test content", string(data))

		rc, err := s.Get(ctx, "photos/wedding/1_a.jpg")
		require.NoError(t, err)
		defer rc.Close()
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "test content", string(got))
	})

	t.Run("overwrite replaces content", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "videos/a.mp4", strings.NewReader("one"), 3, ""))
		require.NoError(t, s.Put(ctx, "videos/a.mp4", strings.NewReader("two"), 3, ""))

		obj, err := s.Stat(ctx, "videos/a.mp4")
		require.NoError(t, err)
		assert.Equal(t, int64(3), obj.Size)
		assert.Equal(t, "a.mp4", obj.Name)
	})

	t.Run("context canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		err := s.Put(cctx, "videos/b.mp4", strings.NewReader("x"), 1, "")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("path traversal rejected", func(t *testing.T) {
		err := s.Put(ctx, "../escape.txt", strings.NewReader("x"), 1, "")
		assert.ErrorIs(t, err, storage.ErrInvalidKey)
	})

	t.Run("missing object", func(t *testing.T) {
		_, err := s.Get(ctx, "photos/nope.jpg")
		assert.ErrorIs(t, err, storage.ErrObjectNotFound)

		_, err = s.Stat(ctx, "photos/nope.jpg")
		assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	})
}

func TestLocalStore_List(t *testing.T) {
	s, _ := setupLocalStore(t)
	ctx := context.Background()

	for _, key := range []string{"photos/b/2.jpg", "photos/a/1.jpg", "photos/root.jpg", "videos/v.mp4"} {
		require.NoError(t, s.Put(ctx, key, strings.NewReader("x"), 1, ""))
	}

	l, err := s.List(ctx, "photos")
	require.NoError(t, err)
	assert.Equal(t, []string{"photos/a", "photos/b"}, l.Prefixes)
	require.Len(t, l.Objects, 1)
	assert.Equal(t, "photos/root.jpg", l.Objects[0].Key)

	l, err = s.List(ctx, "photos/a/")
	require.NoError(t, err)
	require.Len(t, l.Objects, 1)
	assert.Equal(t, "photos/a/1.jpg", l.Objects[0].Key)

	l, err = s.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, l.Objects)
	assert.Empty(t, l.Prefixes)
}

func TestLocalStore_Delete(t *testing.T) {
	s, tempDir := setupLocalStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "photos/g/1.jpg", strings.NewReader("x"), 1, ""))

	require.NoError(t, s.Delete(ctx, "photos/g/1.jpg"))
	_, err := os.Stat(filepath.Join(tempDir, "photos", "g"))
	assert.True(t, os.IsNotExist(err), "empty folder should be removed")

	// повторное удаление не является ошибкой
	assert.NoError(t, s.Delete(ctx, "photos/g/1.jpg"))

	_, err = os.Stat(tempDir)
	assert.NoError(t, err, "base dir must survive")
}

func TestLocalStore_URL(t *testing.T) {
	s, _ := setupLocalStore(t)

	u, err := s.URL(context.Background(), "photos/my gallery/1_a b.jpg")
	require.NoError(t, err)
	assert.Equal(t, "http://test.local/uploads/photos/my%20gallery/1_a%20b.jpg", u)
}

func TestLocalStore_ConcurrentPut(t *testing.T) {
	s, _ := setupLocalStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Put(ctx, "videos/same.mp4", strings.NewReader("payload"), 7, ""))
		}()
	}
	wg.Wait()

	obj, err := s.Stat(ctx, "videos/same.mp4")
	require.NoError(t, err)
	assert.Equal(t, int64(7), obj.Size)

	l, err := s.List(ctx, "videos")
	require.NoError(t, err)
	assert.Len(t, l.Objects, 1, "temp files must not leak into listings")
}
