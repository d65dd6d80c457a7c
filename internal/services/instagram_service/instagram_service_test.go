package services

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ali_portfolio/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, handler http.HandlerFunc) (*InstagramService, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	svc := NewInstagramService(slog.New(slog.NewTextHandler(io.Discard, nil)), Config{
		FeedURL:  srv.URL,
		CacheTTL: time.Minute,
		Timeout:  time.Second,
	})
	svc.intn = func(n int) int { return n - 1 }

	return svc, &hits
}

func TestInstagramService_Feed_NotConfigured(t *testing.T) {
	svc := NewInstagramService(slog.Default(), Config{})

	feed, err := svc.Feed(context.Background())
	require.NoError(t, err)

	assert.True(t, feed.IsMock)
	assert.Equal(t, "Instagram Feed URL not configured", feed.Error)
	require.Len(t, feed.Posts, 6)
	assert.Equal(t, "1", feed.Posts[0].ID)
	assert.Equal(t, "Live Post 6", feed.Posts[5].Caption)
	assert.Equal(t, int64(3200), feed.Posts[5].Likes)
}

func TestInstagramService_Feed_Normalize(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []models.InstagramPost
	}{
		{
			name: "behold posts object",
			body: `{"posts":[
				{"id":"a","mediaType":"IMAGE","mediaUrl":"https://cdn/a.jpg","permalink":"https://ig/p/a","caption":"A","likes":12,"comments":3},
				{"id":"b","mediaType":"VIDEO","mediaUrl":"https://cdn/b.mp4","thumbnailUrl":"https://cdn/b.jpg","permalink":"https://ig/p/b","caption":"B"},
				{"id":"c","media_type":"CAROUSEL_ALBUM","media_url":"https://cdn/c.jpg","permalink":"https://ig/p/c","caption":"C","like_count":7,"comments_count":2}
			]}`,
			want: []models.InstagramPost{
				{ID: "a", MediaURL: "https://cdn/a.jpg", MediaType: "IMAGE", Permalink: "https://ig/p/a", Caption: "A", Likes: 12, Comments: 3},
				{ID: "c", MediaURL: "https://cdn/c.jpg", MediaType: "CAROUSEL_ALBUM", Permalink: "https://ig/p/c", Caption: "C", Likes: 7, Comments: 2},
			},
		},
		{
			name: "bare array with synthesized counts",
			body: `[{"id":101,"media_url":"https://cdn/x.jpg","permalink":"https://ig/p/x","caption":"X"}]`,
			want: []models.InstagramPost{
				{ID: "101", MediaURL: "https://cdn/x.jpg", MediaType: "IMAGE", Permalink: "https://ig/p/x", Caption: "X", Likes: 1099, Comments: 59},
			},
		},
		{
			name: "posts not an array",
			body: `{"posts":{"id":"a"}}`,
			want: []models.InstagramPost{},
		},
		{
			name: "null posts falls back to root",
			body: `{"posts":null}`,
			want: []models.InstagramPost{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			})

			feed, err := svc.Feed(context.Background())
			require.NoError(t, err)
			assert.False(t, feed.IsMock)
			assert.Empty(t, feed.Error)
			assert.Equal(t, tt.want, feed.Posts)
		})
	}
}

func TestInstagramService_Feed_Cached(t *testing.T) {
	svc, hits := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"a","mediaUrl":"u","likes":1,"comments":1}]`))
	})

	for i := 0; i < 3; i++ {
		feed, err := svc.Feed(context.Background())
		require.NoError(t, err)
		require.Len(t, feed.Posts, 1)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestInstagramService_Feed_Upstream(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, hits := newTestService(t, tt.handler)

			_, err := svc.Feed(context.Background())
			assert.ErrorIs(t, err, ErrFeedUnavailable)

			_, err = svc.Feed(context.Background())
			assert.Error(t, err)
			assert.Equal(t, int32(2), hits.Load(), "failures are not cached")
		})
	}
}

func TestInstagramService_Feed_CallerCancelled(t *testing.T) {
	svc, hits := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"a","mediaUrl":"u","likes":1,"comments":1}]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	feed, err := svc.Feed(ctx)
	require.NoError(t, err)
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, int32(1), hits.Load())

	feed, err = svc.Feed(context.Background())
	require.NoError(t, err)
	assert.Len(t, feed.Posts, 1)
	assert.Equal(t, int32(1), hits.Load())
}
