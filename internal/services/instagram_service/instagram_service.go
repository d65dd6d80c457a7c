package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/lib/logger/sl"

	"github.com/patrickmn/go-cache"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
)

const (
	feedKey      = "feed"
	maxFeedBytes = 5 << 20
)

var ErrFeedUnavailable = errors.New("failed to fetch Instagram feed")

type Config struct {
	FeedURL  string
	CacheTTL time.Duration
	Timeout  time.Duration
}

// InstagramService проксирует ленту Instagram (Behold) и кэширует её
type InstagramService struct {
	log    *slog.Logger
	cfg    Config
	client *http.Client
	cache  *cache.Cache
	group  singleflight.Group
	intn   func(n int) int
}

func NewInstagramService(log *slog.Logger, cfg Config) *InstagramService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &InstagramService{
		log:    log,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cache:  cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		intn:   rand.Intn,
	}
}

// Feed возвращает посты без видео. Без настроенного URL отдаёт мок-ленту.
func (s *InstagramService) Feed(ctx context.Context) (models.InstagramFeed, error) {
	const op = "service.InstagramService.Feed"

	if s.cfg.FeedURL == "" {
		return models.InstagramFeed{
			Error:  "Instagram Feed URL not configured",
			IsMock: true,
			Posts:  mockPosts(),
		}, nil
	}

	if cached, ok := s.cache.Get(feedKey); ok {
		return models.InstagramFeed{Posts: cached.([]models.InstagramPost)}, nil
	}

	v, err, _ := s.group.Do(feedKey, func() (any, error) {
		posts, err := s.fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		s.cache.SetDefault(feedKey, posts)
		return posts, nil
	})
	if err != nil {
		s.log.Error("instagram fetch failed", slog.String("op", op), sl.Err(err))
		return models.InstagramFeed{}, fmt.Errorf("%s: %w: %w", op, ErrFeedUnavailable, err)
	}

	return models.InstagramFeed{Posts: v.([]models.InstagramPost)}, nil
}

func (s *InstagramService) fetch(ctx context.Context) ([]models.InstagramPost, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.FeedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("feed is not valid json")
	}

	return s.normalize(gjson.ParseBytes(body)), nil
}

// normalize принимает {"posts":[...]} или голый массив
func (s *InstagramService) normalize(root gjson.Result) []models.InstagramPost {
	items := root
	if p := root.Get("posts"); p.Exists() && p.Type != gjson.Null {
		items = p
	}

	posts := make([]models.InstagramPost, 0)
	if !items.IsArray() {
		return posts
	}

	items.ForEach(func(_, item gjson.Result) bool {
		mediaType := first(item, "mediaType", "media_type")
		if mediaType == "" {
			mediaType = "IMAGE"
		}
		if mediaType == "VIDEO" {
			return true
		}

		likes := item.Get("likes").Int()
		if likes <= 0 {
			likes = item.Get("like_count").Int()
		}
		if likes <= 0 {
			likes = int64(s.intn(1000) + 100)
		}
		comments := item.Get("comments").Int()
		if comments <= 0 {
			comments = item.Get("comments_count").Int()
		}
		if comments <= 0 {
			comments = int64(s.intn(50) + 10)
		}

		posts = append(posts, models.InstagramPost{
			ID:        item.Get("id").String(),
			MediaURL:  first(item, "mediaUrl", "media_url"),
			MediaType: mediaType,
			Permalink: item.Get("permalink").String(),
			Caption:   item.Get("caption").String(),
			Likes:     likes,
			Comments:  comments,
		})
		return true
	})

	return posts
}

func first(item gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := item.Get(p).String(); v != "" {
			return v
		}
	}
	return ""
}

func mockPosts() []models.InstagramPost {
	const permalink = "https://instagram.com/alizidanjr"
	src := []struct {
		photo    string
		likes    int64
		comments int64
	}{
		{"photo-1515886657613-9f3515b0c78f", 1200, 45},
		{"photo-1529626455594-4ff0802cfb7e", 850, 32},
		{"photo-1534528741775-53994a69daeb", 2100, 120},
		{"photo-1544005313-94ddf0286df2", 960, 28},
		{"photo-1506794778202-cad84cf45f1d", 1500, 54},
		{"photo-1494790108377-be9c29b29330", 3200, 210},
	}

	posts := make([]models.InstagramPost, 0, len(src))
	for i, p := range src {
		posts = append(posts, models.InstagramPost{
			ID:        fmt.Sprint(i + 1),
			MediaURL:  "https://images.unsplash.com/" + p.photo + "?w=800",
			Permalink: permalink,
			Caption:   fmt.Sprintf("Live Post %d", i+1),
			Likes:     p.likes,
			Comments:  p.comments,
		})
	}
	return posts
}
