package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
)

const checkTimeout = 3 * time.Second

// Pinger это любая зависимость, которую можно проверить одним вызовом
type Pinger func(ctx context.Context) error

// Checker отдаёт /live и /ready. Liveness проверяет только сам процесс,
// readiness ходит в хранилища.
type Checker struct {
	handler healthcheck.Handler
}

func NewChecker() *Checker {
	h := healthcheck.NewHandler()
	h.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(10000))

	return &Checker{handler: h}
}

// AddReadiness регистрирует зависимость для /ready
func (c *Checker) AddReadiness(name string, ping Pinger) {
	c.handler.AddReadinessCheck(name, healthcheck.Timeout(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		return ping(ctx)
	}, checkTimeout))
}

func (c *Checker) LiveHandler() http.Handler {
	return http.HandlerFunc(c.handler.LiveEndpoint)
}

func (c *Checker) ReadyHandler() http.Handler {
	return http.HandlerFunc(c.handler.ReadyEndpoint)
}
