package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/lib/logger/sl"
	"ali_portfolio/internal/metrics"
	"ali_portfolio/internal/repository"
	"ali_portfolio/internal/services/mailer"

	"github.com/google/uuid"
)

var (
	ErrInvalidStatus = errors.New("invalid message status")
	ErrForwardFailed = errors.New("message stored but forwarding failed")
)

// Publisher рассылает события входящих подписчикам (websocket)
type Publisher interface {
	Publish(ctx context.Context, event models.InboxEvent) error
}

type ForwardConfig struct {
	From   string
	To     string
	Domain string
}

type InboxService struct {
	log     *slog.Logger
	repo    repository.MessageRepository
	mailer  mailer.Mailer
	events  Publisher
	forward ForwardConfig
	now     func() time.Time
}

func NewInboxService(
	log *slog.Logger,
	repo repository.MessageRepository,
	m mailer.Mailer,
	events Publisher,
	forward ForwardConfig,
) *InboxService {
	return &InboxService{
		log:     log,
		repo:    repo,
		mailer:  m,
		events:  events,
		forward: forward,
		now:     time.Now,
	}
}

// List возвращает письма от новых к старым с фильтром по тексту и статусу
func (s *InboxService) List(ctx context.Context, filter models.MessageFilter) ([]models.Message, error) {
	const op = "service.InboxService.List"

	filter.Query = strings.TrimSpace(filter.Query)
	switch filter.Status {
	case "", "all", string(models.MessageRead), string(models.MessageUnread):
	default:
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}

	msgs, err := s.repo.ListMessages(ctx, filter)
	if err != nil {
		s.log.Error("failed to list messages", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return msgs, nil
}

func (s *InboxService) SetStatus(ctx context.Context, id string, status models.MessageStatus) error {
	const op = "service.InboxService.SetStatus"

	if !status.Valid() {
		return fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}

	if err := s.repo.UpdateMessageStatus(ctx, id, status); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, models.InboxMessageUpdated, id)

	return nil
}

// ToggleStatus переключает read/unread и возвращает новый статус
func (s *InboxService) ToggleStatus(ctx context.Context, id string) (models.MessageStatus, error) {
	const op = "service.InboxService.ToggleStatus"

	msg, err := s.repo.GetMessage(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	next := models.MessageRead
	if msg.Status == models.MessageRead {
		next = models.MessageUnread
	}

	if err := s.repo.UpdateMessageStatus(ctx, id, next); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, models.InboxMessageUpdated, id)

	return next, nil
}

func (s *InboxService) Delete(ctx context.Context, id string) error {
	const op = "service.InboxService.Delete"

	if err := s.repo.DeleteMessage(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("message deleted", slog.String("op", op), slog.String("id", id))
	s.publish(ctx, models.InboxMessageDeleted, id)

	return nil
}

// Receive сохраняет входящее письмо как unread и пересылает копию владельцу.
// Если не удалось сохранить, пересылки нет. Если не удалось переслать,
// письмо остается во входящих, а ошибка оборачивает ErrForwardFailed.
func (s *InboxService) Receive(ctx context.Context, email models.InboundEmail, source models.MessageSource) (models.Message, error) {
	const op = "service.InboxService.Receive"
	log := s.log.With(
		slog.String("op", op),
		slog.String("source", string(source)),
		slog.String("from", email.From),
	)

	msg := models.Message{
		ID:         uuid.NewString(),
		From:       email.From,
		To:         email.To,
		Subject:    email.Subject,
		Text:       email.Text,
		HTML:       email.HTML,
		ReceivedAt: s.now().UTC(),
		Status:     models.MessageUnread,
		Source:     source,
		Payload:    email.Payload,
	}

	if err := s.repo.SaveMessage(ctx, msg); err != nil {
		log.Error("failed to store inbound message", sl.Err(err))
		return models.Message{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.InboundMessages.WithLabelValues(string(source)).Inc()
	log.Info("inbound message stored", slog.String("id", msg.ID))
	s.publish(ctx, models.InboxMessageCreated, msg.ID)

	if err := s.forwardCopy(ctx, msg); err != nil {
		metrics.EmailsSent.WithLabelValues("forward", "error").Inc()
		log.Error("failed to forward message", slog.String("id", msg.ID), sl.Err(err))
		return msg, fmt.Errorf("%s: %w: %w", op, ErrForwardFailed, err)
	}
	metrics.EmailsSent.WithLabelValues("forward", "ok").Inc()

	return msg, nil
}

func (s *InboxService) forwardCopy(ctx context.Context, msg models.Message) error {
	subject := msg.Subject
	if subject == "" {
		subject = "No Subject"
	}

	var body bytes.Buffer
	err := forwardTmpl.Execute(&body, forwardData{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    template.HTML(msg.HTML),
		Text:    msg.Text,
		Domain:  s.forward.Domain,
	})
	if err != nil {
		return err
	}

	_, err = s.mailer.Send(ctx, mailer.Email{
		From:    s.forward.From,
		To:      []string{s.forward.To},
		Subject: fmt.Sprintf("FWD: %s (from %s)", subject, msg.From),
		HTML:    body.String(),
		Text:    msg.Text,
	})
	return err
}

func (s *InboxService) publish(ctx context.Context, typ models.InboxEventType, id string) {
	if s.events == nil {
		return
	}

	err := s.events.Publish(ctx, models.InboxEvent{Type: typ, MessageID: id, At: s.now().UTC()})
	if err != nil {
		s.log.Warn("failed to publish inbox event", slog.String("type", string(typ)), sl.Err(err))
	}
}

type forwardData struct {
	From    string
	To      string
	Subject string
	HTML    template.HTML
	Text    string
	Domain  string
}

var forwardTmpl = template.Must(template.New("forward").Parse(`<div style="font-family: sans-serif; padding: 20px; background: #f9fafb; border-radius: 8px;">
    <div style="margin-bottom: 20px; border-bottom: 1px solid #e5e7eb; padding-bottom: 10px;">
        <p><strong>From:</strong> {{.From}}</p>
        <p><strong>To:</strong> {{.To}}</p>
        <p><strong>Subject:</strong> {{.Subject}}</p>
    </div>
    <div style="background: white; padding: 20px; border-radius: 4px; border: 1px solid #e5e7eb;">
        {{if .HTML}}{{.HTML}}{{else}}<pre style="white-space: pre-wrap;">{{.Text}}</pre>{{end}}
    </div>
    <p style="margin-top: 20px; font-size: 12px; color: #6b7280;">
        This email was received at {{.Domain}} and automatically forwarded.
    </p>
</div>
`))
