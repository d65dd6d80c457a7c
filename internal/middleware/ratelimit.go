package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiter выдаёт каждому ключу (обычно IP) свой token bucket.
// Неактивные ключи вытесняются из кэша через idle.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	idle     time.Duration
	visitors *cache.Cache
	mu       sync.Mutex
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	idle := 10 * time.Minute

	return &RateLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		idle:     idle,
		visitors: cache.New(idle, time.Minute),
	}
}

func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lim *rate.Limiter
	if v, ok := l.visitors.Get(key); ok {
		lim = v.(*rate.Limiter)
	} else {
		lim = rate.NewLimiter(l.limit, l.burst)
	}
	// продлеваем TTL при каждом обращении
	l.visitors.SetDefault(key, lim)

	return lim.Allow()
}

// Middleware отвечает 429 с body, когда клиент исчерпал лимит
func (l *RateLimiter) Middleware(body any) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", "60")
				return c.JSON(http.StatusTooManyRequests, body)
			}
			return next(c)
		}
	}
}
