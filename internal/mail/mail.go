// Package mail sends transactional storefront mail. SendGrid carries
// it when an API key is configured; the log sender covers local runs,
// where the verification code lands in the server log instead.
package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type Sender interface {
	SendVerificationCode(ctx context.Context, email, name, code string) error
}

type LogSender struct {
	Log *slog.Logger
}

func (l LogSender) SendVerificationCode(_ context.Context, email, _, code string) error {
	l.Log.Info("verification code issued", "email", email, "code", code)
	return nil
}

type SendGrid struct {
	client *sendgrid.Client
	from   string
}

func NewSendGrid(apiKey, from string) *SendGrid {
	return &SendGrid{client: sendgrid.NewSendClient(apiKey), from: from}
}

func (s *SendGrid) SendVerificationCode(ctx context.Context, email, name, code string) error {
	msg := sgmail.NewSingleEmail(
		sgmail.NewEmail("ShopHub", s.from),
		"Verify your ShopHub email",
		sgmail.NewEmail(name, email),
		fmt.Sprintf("Your verification code is %s", code),
		fmt.Sprintf("<p>Your verification code is <strong>%s</strong></p>", code),
	)
	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d body=%s", resp.StatusCode, resp.Body)
	}
	return nil
}
