package smtp

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"ali_portfolio/internal/domain/models"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockInbox struct {
	mock.Mock
}

func (m *MockInbox) Receive(ctx context.Context, email models.InboundEmail, source models.MessageSource) (models.Message, error) {
	args := m.Called(ctx, email, source)
	return args.Get(0).(models.Message), args.Error(1)
}

func newSession(inbox Inbox) *session {
	b := NewBackend(slog.Default(), inbox, Config{Domain: "alizidanjr.site", AllowedDomains: []string{"Example.org"}, MaxMessageBytes: 1024})
	return &session{backend: b, remote: "127.0.0.1:1"}
}

const sample = "From: Client <client@example.com>\r\nSubject: Hello\r\n\r\nbody text\r\n"

func TestSession_Rcpt(t *testing.T) {
	tests := []struct {
		name     string
		rcpt     string
		wantCode int
	}{
		{"own domain", "<Hello@AliZidanJr.site>", 0},
		{"allowed domain", "inbox@example.org", 0},
		{"relay attempt", "victim@gmail.com", 550},
		{"no domain", "hello", 501},
		{"empty local part", "@alizidanjr.site", 501},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(new(MockInbox))
			err := s.Rcpt(tt.rcpt, nil)

			if tt.wantCode == 0 {
				require.NoError(t, err)
				assert.Len(t, s.recipients, 1)
				return
			}

			var smtpErr *gosmtp.SMTPError
			require.True(t, errors.As(err, &smtpErr))
			assert.Equal(t, tt.wantCode, smtpErr.Code)
			assert.Empty(t, s.recipients)
		})
	}
}

func TestSession_Data(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		mockSetup func(m *MockInbox)
		wantCode  int
	}{
		{
			name: "stored",
			body: sample,
			mockSetup: func(m *MockInbox) {
				m.On("Receive", mock.Anything, mock.MatchedBy(func(e models.InboundEmail) bool {
					return e.From == "Client <client@example.com>" &&
						e.To == "hello@alizidanjr.site" &&
						e.Subject == "Hello" &&
						e.Text == "body text\r\n" &&
						strings.Contains(string(e.Payload), `"mailFrom":"sender@example.com"`)
				}), models.SourceSMTP).Return(models.Message{ID: "m1"}, nil).Once()
			},
		},
		{
			name: "forward failure still accepted",
			body: sample,
			mockSetup: func(m *MockInbox) {
				m.On("Receive", mock.Anything, mock.Anything, models.SourceSMTP).
					Return(models.Message{ID: "m1"}, errors.New("forward failed")).Once()
			},
		},
		{
			name: "store failure is temporary",
			body: sample,
			mockSetup: func(m *MockInbox) {
				m.On("Receive", mock.Anything, mock.Anything, models.SourceSMTP).
					Return(models.Message{}, errors.New("db down")).Once()
			},
			wantCode: 451,
		},
		{
			name:      "too large",
			body:      sample + strings.Repeat("x", 2048),
			mockSetup: func(*MockInbox) {},
			wantCode:  552,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inbox := new(MockInbox)
			tt.mockSetup(inbox)

			s := newSession(inbox)
			require.NoError(t, s.Mail("<Sender@Example.com>", nil))
			require.NoError(t, s.Rcpt("hello@alizidanjr.site", nil))

			err := s.Data(strings.NewReader(tt.body))
			if tt.wantCode == 0 {
				assert.NoError(t, err)
			} else {
				var smtpErr *gosmtp.SMTPError
				require.True(t, errors.As(err, &smtpErr))
				assert.Equal(t, tt.wantCode, smtpErr.Code)
			}

			inbox.AssertExpectations(t)
		})
	}
}

func TestSession_DataWithoutRecipients(t *testing.T) {
	s := newSession(new(MockInbox))
	err := s.Data(strings.NewReader(sample))

	var smtpErr *gosmtp.SMTPError
	require.True(t, errors.As(err, &smtpErr))
	assert.Equal(t, 554, smtpErr.Code)
}
