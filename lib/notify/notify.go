package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("casefeed.lib.notify")

type SmtpConfig struct {
	Server       string   `json:"smtp_server"`
	Port         int      `json:"smtp_port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

func (c SmtpConfig) Enabled() bool {
	return c.Server != "" && len(c.To) > 0
}

func (c SmtpConfig) addr() string {
	port := c.Port
	if port == 0 {
		port = 587
	}
	return fmt.Sprintf("%s:%d", c.Server, port)
}

// Entry is one newly seen case in a digest.
type Entry struct {
	Title       string
	URL         string
	Author      string
	PublishedAt time.Time
}

func Subject(entries []Entry) string {
	if len(entries) == 1 {
		return "1 new Orthobullets case"
	}
	return fmt.Sprintf("%d new Orthobullets cases", len(entries))
}

func Body(entries []Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(e.Title)
		b.WriteString("\n")
		if e.Author != "" {
			fmt.Fprintf(&b, "by %s\n", e.Author)
		}
		fmt.Fprintf(&b, "%s\n", e.PublishedAt.Format(time.RFC1123Z))
		b.WriteString(e.URL)
		b.WriteString("\n")
	}
	return b.String()
}

func Compose(config SmtpConfig, entries []Entry) *email.Email {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("casefeed <%s>", config.EmailAddress)
	mail.To = config.To
	mail.Subject = Subject(entries)
	mail.Text = []byte(Body(entries))
	return mail
}

// Send mails a digest of entries. Nothing is sent when notifications are
// not configured or there is nothing new.
func Send(ctx context.Context, config SmtpConfig, entries []Entry) error {
	if !config.Enabled() || len(entries) == 0 {
		return nil
	}

	_, span := tracer.Start(ctx, "Send")
	defer span.End()
	span.SetAttributes(attribute.Int("entries", len(entries)))

	mail := Compose(config, entries)
	err := mail.Send(
		config.addr(),
		smtp.PlainAuth("", config.EmailAddress, config.Password, config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(config.addr(), nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
