// Package mailer sends outbound email. The digest is its only caller today.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"

	"socialcomments/internal/config"
	"socialcomments/internal/middleware"
)

// Mailer delivers one message and returns a message id for logging.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) (string, error)
}

type smtpMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	enabled  bool
}

// NewSMTPMailer builds the SMTP-backed Mailer from config. When MAIL_ENABLED
// is false the mailer logs and drops messages instead of sending, which keeps
// development environments from emailing real users.
func NewSMTPMailer(cfg *config.Config) Mailer {
	return &smtpMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		enabled:  cfg.MailEnabled,
	}
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, htmlBody, textBody string) (string, error) {
	messageID := uuid.New().String()

	if !m.enabled {
		middleware.Logger.InfoContext(ctx, "mail disabled, dropping message",
			"message_id", messageID,
			"to", to,
			"subject", subject)
		return messageID, nil
	}

	msg := buildMessage(m.from, to, subject, messageID, htmlBody, textBody)

	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, msg); err != nil {
		return "", fmt.Errorf("smtp send to %s: %w", to, err)
	}

	middleware.Logger.InfoContext(ctx, "mail sent",
		"message_id", messageID,
		"to", to,
		"subject", subject)
	return messageID, nil
}

// buildMessage assembles a multipart/alternative MIME message so clients can
// pick between the text and HTML renderings.
func buildMessage(from, to, subject, messageID, htmlBody, textBody string) []byte {
	boundary := "b-" + messageID

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Message-ID: <%s>\r\n", messageID)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(textBody)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}
