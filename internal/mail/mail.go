// Package mail sends account confirmation emails. Messages are formatted with hermes and
// delivered through Mailgun. LogSender replaces delivery with a log line outside production.
package mail

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/matcornic/hermes/v2"
	"go.uber.org/zap"
)

const verificationSubject = "Confirm your email"

// Config holds Mailgun credentials and the product shown in the email
type Config struct {
	Domain      string
	APIKey      string
	APIBase     string
	From        string
	FromName    string
	ProductName string
	ProductLink string
}

// MailgunSender formats confirmation emails with hermes and sends them with Mailgun
type MailgunSender struct {
	hermes  *hermes.Hermes
	mailgun *mailgun.MailgunImpl
	from    string
	logger  *zap.Logger
}

// NewMailgunSender creates a Mailgun backed sender
func NewMailgunSender(cfg Config, logger *zap.Logger) *MailgunSender {
	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.APIBase != "" {
		mg.SetAPIBase(cfg.APIBase)
	}

	from := cfg.From
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From)
	}

	return &MailgunSender{
		hermes: &hermes.Hermes{
			Theme:         new(hermes.Default),
			TextDirection: hermes.TDLeftToRight,
			Product: hermes.Product{
				Name:        cfg.ProductName,
				Link:        cfg.ProductLink,
				Copyright:   fmt.Sprintf("© %s", cfg.ProductName),
				TroubleText: "If the '{ACTION}' button does not work, copy and paste the URL below into your web browser.",
			},
		},
		mailgun: mg,
		from:    from,
		logger:  logger,
	}
}

// SendVerificationEmail sends a message with a link that confirms the address.
// host is the public base URL of the API, e.g. "https://contacts.example.com/".
func (s *MailgunSender) SendVerificationEmail(ctx context.Context, to, username, host, token string) error {
	email := verificationEmail(username, VerificationLink(host, token))

	html, err := s.hermes.GenerateHTML(email)
	if err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}

	text, err := s.hermes.GeneratePlainText(email)
	if err != nil {
		return fmt.Errorf("failed to render plain text email: %w", err)
	}

	message := s.mailgun.NewMessage(s.from, verificationSubject, text, to)
	message.SetHtml(html)

	_, id, err := s.mailgun.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Debug("Verification email sent", zap.String("username", username), zap.String("message_id", id))
	return nil
}

// LogSender skips delivery and only records that an email would have been sent
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a sender that never delivers
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendVerificationEmail logs the recipient. The token is not logged.
func (s *LogSender) SendVerificationEmail(_ context.Context, to, username, _, _ string) error {
	s.logger.Info("Skipping verification email, mail delivery is disabled",
		zap.String("to", to),
		zap.String("username", username),
	)
	return nil
}

// VerificationLink returns the confirmation URL for token under host
func VerificationLink(host, token string) string {
	return strings.TrimSuffix(host, "/") + "/api/auth/confirmed_email/" + url.PathEscape(token)
}

func verificationEmail(username, link string) hermes.Email {
	return hermes.Email{
		Body: hermes.Body{
			Name: username,
			Intros: []string{
				"Thanks for signing up! Please confirm your email address to activate your account.",
			},
			Actions: []hermes.Action{
				{
					Instructions: "To confirm your email, click the button below:",
					Button: hermes.Button{
						Color: "#22BC66",
						Text:  "Confirm your email",
						Link:  link,
					},
				},
			},
			Outros: []string{
				"If you did not create an account, no further action is required.",
			},
		},
	}
}
