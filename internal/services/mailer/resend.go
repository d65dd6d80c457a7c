package mailer

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

type ResendMailer struct {
	client *resend.Client
}

func NewResendMailer(apiKey string) (*ResendMailer, error) {
	if apiKey == "" {
		return nil, ErrMailerNotConfigured
	}
	return &ResendMailer{client: resend.NewClient(apiKey)}, nil
}

func (m *ResendMailer) Send(ctx context.Context, email Email) (string, error) {
	const op = "mailer.ResendMailer.Send"

	if len(email.To) == 0 {
		return "", fmt.Errorf("%s: %w", op, ErrNoRecipients)
	}

	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    email.From,
		To:      email.To,
		ReplyTo: email.ReplyTo,
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return sent.Id, nil
}
