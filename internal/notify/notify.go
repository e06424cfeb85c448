package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"arena-sheets/internal/assert"
	"arena-sheets/internal/telemetry"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("arena-sheets/internal/notify")

const (
	report_notifier_send   = "notifier.send"
	report_notifier_unsent = "notifier.unsent"
)

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

func (c SmtpConfig) Configured() bool {
	return c.Server != "" && c.EmailAddress != ""
}

// Sender delivers a composed email.
//
// note: fault injection point
type Sender interface {
	Send(ctx context.Context, mail *email.Email) error
}

// SmtpSender sends with PLAIN auth, falling back to no auth for relays
// that do not support it.
type SmtpSender struct {
	Config SmtpConfig
}

func (s SmtpSender) Send(ctx context.Context, mail *email.Email) error {
	addr := fmt.Sprintf("%s:%d", s.Config.Server, s.Config.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", s.Config.EmailAddress, s.Config.Password, s.Config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	return err
}

// LogSender reports mail instead of sending it, it stands in for
// SmtpSender when no server is configured.
type LogSender struct {
	Tel telemetry.API
}

func (s LogSender) Send(ctx context.Context, mail *email.Email) error {
	s.Tel.ReportWarning(
		report_notifier_unsent,
		telemetry.KV{Key: "to", Value: strings.Join(mail.To, ", ")},
		telemetry.KV{Key: "subject", Value: mail.Subject},
	)
	return nil
}

type Notifier struct {
	sender Sender
	from   string
	tel    telemetry.API
}

func NewNotifier(sender Sender, from string, tel telemetry.API) Notifier {
	assert.NotNil(sender)
	assert.NotNil(tel)
	return Notifier{
		sender: sender,
		from:   from,
		tel:    telemetry.NewScopedAPI("notify", tel),
	}
}

// FormatContactQueue renders the new entries of a contact queue table as
// plain text, one line per entry.
func FormatContactQueue(className string, table [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New contact queue entries for %s:\n\n", className)
	for i, row := range table {
		if i == 0 || len(row) < 7 {
			continue
		}
		// date, last, first(s), phone(s), email(s), last present, reason
		fmt.Fprintf(&b, "- %s, %s: %s", row[1], row[2], row[6])
		if row[5] != "" {
			fmt.Fprintf(&b, " (last present %s)", row[5])
		}
		b.WriteString("\n")
		if row[3] != "" {
			fmt.Fprintf(&b, "    phone: %s\n", row[3])
		}
		if row[4] != "" {
			fmt.Fprintf(&b, "    email: %s\n", row[4])
		}
	}
	return b.String()
}

// ContactQueue mails the new contact queue entries of a class to its
// recipients, no recipients is a no-op.
func (n Notifier) ContactQueue(ctx context.Context, className string, table [][]string, recipients []string) error {
	if len(recipients) == 0 || len(table) <= 1 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "ContactQueue")
	defer span.End()
	span.SetAttributes(attribute.String("class", className), attribute.Int("recipients", len(recipients)))

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Arena Sheets <%s>", n.from)
	mail.To = recipients
	mail.Subject = fmt.Sprintf("Contact queue: %s", className)
	mail.Text = []byte(FormatContactQueue(className, table))

	err := n.sender.Send(ctx, mail)
	if err != nil {
		n.tel.ReportBroken(report_notifier_send, err, telemetry.KV{Key: "class", Value: className})
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
