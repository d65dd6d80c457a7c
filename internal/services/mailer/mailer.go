package mailer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

var (
	ErrMailerNotConfigured = errors.New("mailer is not configured")
	ErrNoRecipients        = errors.New("email has no recipients")
)

// Email это одно исходящее письмо
type Email struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Mailer отправляет письмо и возвращает id, выданный провайдером
type Mailer interface {
	Send(ctx context.Context, email Email) (string, error)
}

// LogMailer только пишет письмо в лог (локальная разработка)
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, email Email) (string, error) {
	if len(email.To) == 0 {
		return "", ErrNoRecipients
	}

	id := uuid.NewString()
	m.log.Info("email (not sent)",
		slog.String("id", id),
		slog.String("from", email.From),
		slog.Any("to", email.To),
		slog.String("reply_to", email.ReplyTo),
		slog.String("subject", email.Subject),
		slog.Int("html_bytes", len(email.HTML)),
	)

	return id, nil
}
