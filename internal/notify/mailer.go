package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"gradesync-backend/internal/runner"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("gradesync.notify")

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

type Options struct {
	Smtp SmtpConfig `json:"smtp"`
	// Recipients get a report after every run.
	Recipients []string `json:"recipients"`
	// OnlyFailures skips reports of runs where nothing failed.
	OnlyFailures bool `json:"only_failures"`
}

// Sender delivers a composed email.
//
// note: fault injection point
type Sender interface {
	Send(mail *email.Email) error
}

type smtpSender struct {
	config SmtpConfig
}

func (s smtpSender) Send(mail *email.Email) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server, s.config.Port)
	err := mail.Send(addr, smtp.PlainAuth("", s.config.EmailAddress, s.config.Password, s.config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		return mail.Send(addr, nil)
	}
	return err
}

// Mailer emails run reports to the operators.
type Mailer struct {
	options Options
	sender  Sender
}

func NewMailer(options Options) Mailer {
	return Mailer{options: options, sender: smtpSender{config: options.Smtp}}
}

// NewMailerWithSender is NewMailer with a custom Sender.
func NewMailerWithSender(options Options, sender Sender) Mailer {
	return Mailer{options: options, sender: sender}
}

func (m Mailer) Notify(ctx context.Context, report runner.Report) error {
	_, span := tracer.Start(ctx, "Notify")
	defer span.End()

	if len(m.options.Recipients) == 0 {
		return nil
	}
	if m.options.OnlyFailures && report.Failed == 0 && report.Error == "" {
		return nil
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Gradesync <%s>", m.options.Smtp.EmailAddress)
	mail.To = m.options.Recipients
	mail.Subject = Subject(report)
	mail.Text = []byte(Body(report))

	err := m.sender.Send(mail)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}

func Subject(report runner.Report) string {
	if report.Error != "" {
		return "Grade sync failed to start"
	}
	return fmt.Sprintf(
		"Grade sync: %d succeeded, %d failed, %d skipped",
		report.Succeeded, report.Failed, report.Skipped,
	)
}

// Body lists every failed or skipped pair, user ids are included but never
// credentials.
func Body(report runner.Report) string {
	var out strings.Builder
	fmt.Fprintf(&out, "Run %s\n", report.RunID)
	fmt.Fprintf(&out, "Started:  %s\n", report.Started.Format(time.DateTime))
	fmt.Fprintf(&out, "Finished: %s\n", report.Finished.Format(time.DateTime))
	if report.Error != "" {
		fmt.Fprintf(&out, "\nThe run could not list saved credentials: %s\n", report.Error)
		return out.String()
	}

	fmt.Fprintf(&out, "\nSucceeded: %d\nFailed: %d\nSkipped: %d\n", report.Succeeded, report.Failed, report.Skipped)

	wroteHeader := false
	for _, r := range report.Results {
		if r.Success {
			continue
		}
		if !wroteHeader {
			out.WriteString("\nProblems:\n")
			wroteHeader = true
		}
		detail := r.Error
		if detail == "" {
			detail = r.Reason
		}
		fmt.Fprintf(&out, "- %s / %s: %s (%s)\n", r.UserID, r.Source, r.Reason, detail)
	}
	return out.String()
}
