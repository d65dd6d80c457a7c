package mailer

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"github.com/google/uuid"
)

type SMTPConfig struct {
	Addr     string
	Username string
	Password string
	Domain   string // правая часть Message-ID
}

// SMTPMailer отправляет письма через SMTP relay
type SMTPMailer struct {
	cfg  SMTPConfig
	now  func() time.Time
	send func(addr string, a sasl.Client, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Addr == "" {
		return nil, ErrMailerNotConfigured
	}
	if cfg.Domain == "" {
		cfg.Domain = "localhost"
	}

	return &SMTPMailer{
		cfg: cfg,
		now: time.Now,
		send: func(addr string, a sasl.Client, from string, to []string, msg []byte) error {
			return gosmtp.SendMail(addr, a, from, to, bytes.NewReader(msg))
		},
	}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, email Email) (string, error) {
	const op = "mailer.SMTPMailer.Send"

	if len(email.To) == 0 {
		return "", fmt.Errorf("%s: %w", op, ErrNoRecipients)
	}

	from, err := mail.ParseAddress(email.From)
	if err != nil {
		return "", fmt.Errorf("%s: bad sender: %w", op, err)
	}

	rcpts := make([]string, 0, len(email.To))
	for _, to := range email.To {
		addr, err := mail.ParseAddress(to)
		if err != nil {
			return "", fmt.Errorf("%s: bad recipient %q: %w", op, to, err)
		}
		rcpts = append(rcpts, addr.Address)
	}

	id := uuid.NewString() + "@" + m.cfg.Domain
	msg, err := buildMessage(email, id, m.now())
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var auth sasl.Client
	if m.cfg.Username != "" {
		auth = sasl.NewPlainClient("", m.cfg.Username, m.cfg.Password)
	}

	done := make(chan error, 1)
	go func() {
		done <- m.send(m.cfg.Addr, auth, from.Address, rcpts, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	}

	return id, nil
}

func buildMessage(email Email, messageID string, date time.Time) ([]byte, error) {
	var buf bytes.Buffer

	header := func(k, v string) {
		buf.WriteString(k + ": " + v + "\r\n")
	}
	header("From", email.From)
	header("To", strings.Join(email.To, ", "))
	if email.ReplyTo != "" {
		header("Reply-To", email.ReplyTo)
	}
	header("Subject", mime.QEncoding.Encode("utf-8", email.Subject))
	header("Date", date.Format(time.RFC1123Z))
	header("Message-ID", "<"+messageID+">")
	header("MIME-Version", "1.0")

	mw := multipart.NewWriter(&buf)
	header("Content-Type", "multipart/alternative; boundary="+mw.Boundary())
	buf.WriteString("\r\n")

	parts := []struct {
		ctype string
		body  string
	}{
		{"text/plain; charset=utf-8", email.Text},
		{"text/html; charset=utf-8", email.HTML},
	}
	for _, p := range parts {
		if p.body == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.ctype},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(p.body)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
