package service

import (
	"context"
	"fmt"
	"html"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// EmailService sends transactional mail through Resend.
type EmailService struct {
	client *resend.Client
	from   string
	log    zerolog.Logger
}

// NewEmailService returns nil when no API key is configured.
func NewEmailService(apiKey, from string, log zerolog.Logger) *EmailService {
	if apiKey == "" {
		log.Info().Msg("email: RESEND_API_KEY not set, email delivery disabled")
		return nil
	}
	return &EmailService{client: resend.NewClient(apiKey), from: from, log: log}
}

func (s *EmailService) Send(ctx context.Context, to, subject, body string) error {
	if s == nil || to == "" {
		return nil
	}
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    renderEmail(subject, body),
	}
	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	s.log.Debug().Str("email_id", sent.Id).Str("subject", subject).Msg("email sent")
	return nil
}

func renderEmail(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>%s</h2>
    <p>%s</p>
    <p style="margin-top: 30px; font-size: 12px; color: #666;">The Hive. This is an automated message, please do not reply.</p>
  </div>
</body>
</html>`, html.EscapeString(title), html.EscapeString(body))
}
