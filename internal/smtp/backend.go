package smtp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"ali_portfolio/internal/domain/models"
	"ali_portfolio/internal/lib/logger/sl"

	gosmtp "github.com/emersion/go-smtp"
)

// Inbox принимает разобранное письмо
type Inbox interface {
	Receive(ctx context.Context, email models.InboundEmail, source models.MessageSource) (models.Message, error)
}

type Config struct {
	Addr            string
	Domain          string
	AllowedDomains  []string
	MaxMessageBytes int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

// Backend реализует gosmtp.Backend. Сервер только принимает почту для своих
// доменов и ничего не пересылает дальше.
type Backend struct {
	log      *slog.Logger
	inbox    Inbox
	domains  map[string]struct{}
	maxBytes int64
}

func NewBackend(log *slog.Logger, inbox Inbox, cfg Config) *Backend {
	domains := make(map[string]struct{})
	for _, d := range append([]string{cfg.Domain}, cfg.AllowedDomains...) {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			domains[d] = struct{}{}
		}
	}

	maxBytes := cfg.MaxMessageBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}

	return &Backend{
		log:      log,
		inbox:    inbox,
		domains:  domains,
		maxBytes: maxBytes,
	}
}

func (b *Backend) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	return &session{backend: b, remote: c.Conn().RemoteAddr().String()}, nil
}

type session struct {
	backend    *Backend
	remote     string
	from       string
	recipients []string
}

func (s *session) Mail(from string, _ *gosmtp.MailOptions) error {
	s.from = normalizeAddress(from)
	return nil
}

func (s *session) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	addr := normalizeAddress(to)

	at := strings.LastIndexByte(addr, '@')
	if at <= 0 || at == len(addr)-1 {
		return &gosmtp.SMTPError{
			Code:         501,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 3},
			Message:      "invalid recipient address",
		}
	}

	if _, ok := s.backend.domains[addr[at+1:]]; !ok {
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 7, 1},
			Message:      "relay access denied",
		}
	}

	s.recipients = append(s.recipients, addr)
	return nil
}

func (s *session) Data(r io.Reader) error {
	const op = "smtp.session.Data"
	log := s.backend.log.With(
		slog.String("op", op),
		slog.String("remote", s.remote),
		slog.String("from", s.from),
	)

	if len(s.recipients) == 0 {
		return &gosmtp.SMTPError{
			Code:         554,
			EnhancedCode: gosmtp.EnhancedCode{5, 5, 1},
			Message:      "no valid recipients",
		}
	}

	raw, err := io.ReadAll(io.LimitReader(r, s.backend.maxBytes+1))
	if err != nil {
		return err
	}
	if int64(len(raw)) > s.backend.maxBytes {
		return gosmtp.ErrDataTooLarge
	}

	parsed, err := ParseEmail(raw)
	if err != nil {
		log.Warn("unparseable message", sl.Err(err))
		return &gosmtp.SMTPError{
			Code:         554,
			EnhancedCode: gosmtp.EnhancedCode{5, 6, 0},
			Message:      "message could not be parsed",
		}
	}

	payload, err := json.Marshal(map[string]any{
		"mailFrom": s.from,
		"rcptTo":   s.recipients,
		"raw":      string(raw),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	from := parsed.From
	if from == "" {
		from = s.from
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	msg, err := s.backend.inbox.Receive(ctx, models.InboundEmail{
		From:    from,
		To:      strings.Join(s.recipients, ", "),
		Subject: parsed.Subject,
		Text:    parsed.Text,
		HTML:    parsed.HTML,
		Payload: payload,
	}, models.SourceSMTP)
	if err != nil {
		if msg.ID != "" {
			// stored, only the copy to the operator failed
			log.Warn("message stored but not forwarded", slog.String("id", msg.ID), sl.Err(err))
			return nil
		}
		log.Error("failed to store message", sl.Err(err))
		return &gosmtp.SMTPError{
			Code:         451,
			EnhancedCode: gosmtp.EnhancedCode{4, 3, 0},
			Message:      "temporary failure, try again later",
		}
	}

	log.Info("message accepted", slog.Int("bytes", len(raw)))

	return nil
}

func (s *session) Reset() {
	s.from = ""
	s.recipients = nil
}

func (s *session) Logout() error {
	return nil
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.Trim(addr, "<>")
	return strings.ToLower(addr)
}
