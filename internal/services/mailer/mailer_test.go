package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"ali_portfolio/internal/smtp"

	"github.com/emersion/go-sasl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMailer_Send(t *testing.T) {
	m := NewLogMailer(slog.New(slog.NewTextHandler(io.Discard, nil)))

	id, err := m.Send(context.Background(), Email{To: []string{"a@example.com"}, Subject: "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = m.Send(context.Background(), Email{})
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestSMTPMailer_Send(t *testing.T) {
	type sent struct {
		addr string
		auth sasl.Client
		from string
		to   []string
		msg  []byte
	}

	tests := []struct {
		name     string
		cfg      SMTPConfig
		email    Email
		sendErr  error
		wantErr  bool
		wantAuth bool
	}{
		{
			name: "html and text with auth",
			cfg:  SMTPConfig{Addr: "smtp.example.com:587", Username: "user", Password: "pw", Domain: "alizidanjr.site"},
			email: Email{
				From:    "Booking <bookings@alizidanjr.site>",
				To:      []string{"Owner <owner@example.com>"},
				ReplyTo: "client@example.com",
				Subject: "New Booking Request from Zoë",
				HTML:    "<h2>New Booking</h2>",
				Text:    "New Booking",
			},
			wantAuth: true,
		},
		{
			name:  "no auth",
			cfg:   SMTPConfig{Addr: "localhost:25"},
			email: Email{From: "a@example.com", To: []string{"b@example.com"}, Subject: "x", Text: "body"},
		},
		{
			name:    "relay error",
			cfg:     SMTPConfig{Addr: "localhost:25"},
			email:   Email{From: "a@example.com", To: []string{"b@example.com"}, Text: "body"},
			sendErr: errors.New("454 try later"),
			wantErr: true,
		},
		{
			name:    "bad recipient",
			cfg:     SMTPConfig{Addr: "localhost:25"},
			email:   Email{From: "a@example.com", To: []string{"not an address"}},
			wantErr: true,
		},
		{
			name:    "no recipients",
			cfg:     SMTPConfig{Addr: "localhost:25"},
			email:   Email{From: "a@example.com"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewSMTPMailer(tt.cfg)
			require.NoError(t, err)
			m.now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }

			var got *sent
			m.send = func(addr string, a sasl.Client, from string, to []string, msg []byte) error {
				got = &sent{addr: addr, auth: a, from: from, to: to, msg: msg}
				return tt.sendErr
			}

			id, err := m.Send(context.Background(), tt.email)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, id)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got)

			assert.Equal(t, tt.cfg.Addr, got.addr)
			assert.Equal(t, tt.wantAuth, got.auth != nil)
			assert.NotContains(t, got.from, "<")
			for _, rcpt := range got.to {
				assert.NotContains(t, rcpt, "<")
			}

			parsed, err := smtp.ParseEmail(got.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.email.Subject, parsed.Subject)
			assert.Equal(t, tt.email.Text, strings.TrimRight(parsed.Text, "\r\n"))
			assert.Equal(t, tt.email.HTML, strings.TrimRight(parsed.HTML, "\r\n"))

			domain := tt.cfg.Domain
			if domain == "" {
				domain = "localhost"
			}
			assert.True(t, strings.HasSuffix(id, "@"+domain))
			assert.Contains(t, string(got.msg), "Message-ID: <"+id+">")
			if tt.email.ReplyTo != "" {
				assert.Contains(t, string(got.msg), "Reply-To: "+tt.email.ReplyTo)
			}
		})
	}
}

func TestSMTPMailer_ContextCancelled(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Addr: "localhost:25"})
	require.NoError(t, err)

	block := make(chan struct{})
	defer close(block)
	m.send = func(string, sasl.Client, string, []string, []byte) error {
		<-block
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = m.Send(ctx, Email{From: "a@example.com", To: []string{"b@example.com"}, Text: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewMailers_NotConfigured(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{})
	assert.ErrorIs(t, err, ErrMailerNotConfigured)

	_, err = NewResendMailer("")
	assert.ErrorIs(t, err, ErrMailerNotConfigured)
}

func TestResendMailer_Send(t *testing.T) {
	var body map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))

		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if body["subject"] == "fail" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"bad from"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"49a3999c-0ce1-4ea6-ab68-afcd6dc2e794"}`))
	}))
	defer srv.Close()

	m, err := NewResendMailer("re_test")
	require.NoError(t, err)
	m.client.BaseURL, err = url.Parse(srv.URL + "/")
	require.NoError(t, err)

	id, err := m.Send(context.Background(), Email{
		From:    "Booking <bookings@alizidanjr.site>",
		To:      []string{"owner@example.com"},
		ReplyTo: "client@example.com",
		Subject: "New Booking Request from Anna",
		HTML:    "<p>hi</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "49a3999c-0ce1-4ea6-ab68-afcd6dc2e794", id)
	assert.Equal(t, "Booking <bookings@alizidanjr.site>", body["from"])
	assert.Equal(t, "<p>hi</p>", body["html"])

	_, err = m.Send(context.Background(), Email{From: "x@example.com", To: []string{"owner@example.com"}, Subject: "fail"})
	assert.Error(t, err)

	_, err = m.Send(context.Background(), Email{From: "x@example.com"})
	assert.ErrorIs(t, err, ErrNoRecipients)
}
