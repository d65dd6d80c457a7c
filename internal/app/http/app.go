package httpapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"ali_portfolio/internal/health"
	appmw "ali_portfolio/internal/middleware"
	httprouters "ali_portfolio/internal/transport/http"
	"ali_portfolio/internal/transport/http/dto/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

type Config struct {
	Host            string
	Port            string
	AllowOrigins    []string
	BodyLimit       string
	ShutdownTimeout time.Duration
	SessionSecret   string
	// UploadsDir раздаётся по /uploads, пусто для облачных хранилищ
	UploadsDir string

	LoginRate    float64
	LoginBurst   int
	BookingRate  float64
	BookingBurst int
	WebhookRate  float64
}

type Server struct {
	log     *slog.Logger
	e       *echo.Echo
	routers *httprouters.Routers
	health  *health.Checker
	cfg     Config
}

func New(log *slog.Logger, cfg Config, routers *httprouters.Routers, checker *health.Checker) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	validate := validator.New()
	e.Validator = &CustomValidator{validator: validate}

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowCredentials: true,
	}))
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	e.Use(session.Middleware(sessions.NewCookieStore([]byte(cfg.SessionSecret))))

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogMethod:   true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("URI", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote ip", v.RemoteIP),
			)

			return nil
		},
	}))
	e.Use(appmw.PrometheusMetrics)

	return &Server{
		log:     log,
		e:       e,
		routers: routers,
		health:  checker,
		cfg:     cfg,
	}
}

// Echo отдаёт собранный роутер, нужен тестам
func (s *Server) Echo() *echo.Echo {
	return s.e
}

func (s *Server) BuildRouters() {
	tooMany := response.AuthResponse{Message: "Too many attempts, try again later"}
	bookingTooMany := response.BookingResponse{Error: "Too many requests, try again later"}
	webhookTooMany := response.WebhookResponse{Error: "Too many requests"}

	limits := httprouters.Limits{}
	if s.cfg.LoginRate > 0 {
		limits.Login = appmw.NewRateLimiter(s.cfg.LoginRate, s.cfg.LoginBurst).Middleware(tooMany)
	}
	if s.cfg.BookingRate > 0 {
		limits.Booking = appmw.NewRateLimiter(s.cfg.BookingRate, s.cfg.BookingBurst).Middleware(bookingTooMany)
	}
	if s.cfg.WebhookRate > 0 {
		burst := int(s.cfg.WebhookRate * 2)
		limits.Webhook = appmw.NewRateLimiter(s.cfg.WebhookRate, burst).Middleware(webhookTooMany)
	}

	s.routers.Register(s.e, limits)

	if s.cfg.UploadsDir != "" {
		s.e.Static("/uploads", s.cfg.UploadsDir)
	}

	s.e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.e.GET("/swagger/*", echoSwagger.WrapHandler)

	if s.health != nil {
		s.e.GET("/live", echo.WrapHandler(s.health.LiveHandler()))
		s.e.GET("/ready", echo.WrapHandler(s.health.ReadyHandler()))
	}
}

func (s *Server) Start() error {
	const op = "http.Server.Start"

	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	s.log.Info("starting http server", slog.String("addr", addr))

	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server stopped: %w", op, err)
	}

	return nil
}

func (s *Server) Stop() error {
	const op = "http.Server.Stop"

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	optCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("stopping http server", slog.String("op", op))

	if err := s.e.Shutdown(optCtx); err != nil {
		return fmt.Errorf("%s could not shutdown server gracefuly: %w", op, err)
	}

	return nil
}
