package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/storelyhq/storely-backend/pkg/config"
	pkgerrors "github.com/storelyhq/storely-backend/pkg/errors"
)

// Mailer sends transactional email to shoppers.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, toEmail, name, token string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, name, token string) error
}

type sendgridMailer struct {
	apiKey string
	from   string
}

// NewSendgrid builds the SendGrid-backed mailer.
func NewSendgrid(cfg config.SendgridConfig) (Mailer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("sendgrid api key is required")
	}
	if cfg.DefaultFrom == "" {
		return nil, fmt.Errorf("sendgrid from address is required")
	}
	return &sendgridMailer{apiKey: cfg.APIKey, from: cfg.DefaultFrom}, nil
}

func (m *sendgridMailer) SendVerificationEmail(ctx context.Context, toEmail, name, token string) error {
	subject := "Verify your email"
	body := fmt.Sprintf("Hi %s, use the token below to verify your email address:\n\n%s", name, token)
	html := fmt.Sprintf("<p>Hi %s,</p><p>Use the token below to verify your email address:</p><pre>%s</pre>", name, token)
	return m.send(ctx, toEmail, name, subject, body, html, "send verification email")
}

func (m *sendgridMailer) SendPasswordResetEmail(ctx context.Context, toEmail, name, token string) error {
	subject := "Reset your password"
	body := fmt.Sprintf("Hi %s, use the token below to reset your password:\n\n%s", name, token)
	html := fmt.Sprintf("<p>Hi %s,</p><p>Use the token below to reset your password:</p><pre>%s</pre>", name, token)
	return m.send(ctx, toEmail, name, subject, body, html, "send password reset email")
}

func (m *sendgridMailer) send(ctx context.Context, toEmail, name, subject, body, html, op string) error {
	if toEmail == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient email is required")
	}

	message := mail.NewSingleEmail(
		mail.NewEmail("Storely", m.from),
		subject,
		mail.NewEmail(name, toEmail),
		body,
		html,
	)

	client := sendgrid.NewSendClient(m.apiKey)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
	}
	if response.StatusCode >= 400 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("sendgrid rejected message with status %d", response.StatusCode))
	}
	return nil
}
