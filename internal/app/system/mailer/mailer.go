// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"fmt"
	"mime/quotedprintable"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Email is one outbound message. TextBody and HTMLBody are sent as a
// multipart/alternative pair; either may be empty.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers email. The governance and proposal workflows treat
// delivery as best-effort and only log failures.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// SMTPSender sends through a plain SMTP relay (Mailpit locally, SES in
// production).
type SMTPSender struct {
	host string
	port int
	user string
	pass string
	from string
}

func NewSMTPSender(host string, port int, user, pass, from string) *SMTPSender {
	return &SMTPSender{host: host, port: port, user: user, pass: pass, from: from}
}

func (s *SMTPSender) Send(ctx context.Context, e Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.pass, s.host)
	}

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	msg := buildMessage(s.from, e)
	if err := smtp.SendMail(addr, auth, s.from, []string{e.To}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", e.To, err)
	}
	return nil
}

const boundary = "hackhub-alt-boundary"

func buildMessage(from string, e Email) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", e.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", e.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	if e.TextBody != "" {
		writePart(&b, "text/plain; charset=UTF-8", e.TextBody)
	}
	if e.HTMLBody != "" {
		writePart(&b, "text/html; charset=UTF-8", e.HTMLBody)
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

func writePart(b *strings.Builder, contentType, body string) {
	fmt.Fprintf(b, "--%s\r\n", boundary)
	fmt.Fprintf(b, "Content-Type: %s\r\n", contentType)
	b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
	w := quotedprintable.NewWriter(b)
	_, _ = w.Write([]byte(body))
	_ = w.Close()
	b.WriteString("\r\n")
}

// LogSender is a Sender that just logs, for environments with no SMTP
// relay configured. Bodies are never logged.
type LogSender struct{}

func (LogSender) Send(_ context.Context, e Email) error {
	zap.L().Info("email suppressed (no smtp relay configured)",
		zap.String("to", e.To),
		zap.String("subject", e.Subject))
	return nil
}
