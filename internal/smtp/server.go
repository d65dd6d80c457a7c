package smtp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gosmtp "github.com/emersion/go-smtp"
)

type Server struct {
	log    *slog.Logger
	server *gosmtp.Server
}

func NewServer(log *slog.Logger, inbox Inbox, cfg Config) *Server {
	srv := gosmtp.NewServer(NewBackend(log, inbox, cfg))
	srv.Addr = cfg.Addr
	srv.Domain = cfg.Domain
	srv.ReadTimeout = cfg.ReadTimeout
	srv.WriteTimeout = cfg.WriteTimeout
	srv.MaxMessageBytes = cfg.MaxMessageBytes
	srv.MaxRecipients = 50

	return &Server{log: log, server: srv}
}

// Run слушает порт до отмены ctx
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting SMTP server", slog.String("addr", s.server.Addr), slog.String("domain", s.server.Domain))
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, gosmtp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("SMTP server shutdown", slog.String("err", err.Error()))
		return s.server.Close()
	}
	s.log.Info("SMTP server stopped")

	return nil
}
