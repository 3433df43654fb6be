package notify

import (
	"context"
	"testing"
	"time"

	"gradesync-backend/internal/runner"

	"github.com/google/uuid"
	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/require"
)

type capturingSender struct {
	sent []*email.Email
}

func (s *capturingSender) Send(mail *email.Email) error {
	s.sent = append(s.sent, mail)
	return nil
}

func sampleReport() runner.Report {
	started := time.Date(2024, time.October, 14, 6, 0, 0, 0, time.UTC)
	return runner.Report{
		RunID:     uuid.MustParse("6b1f5f0e-3c55-4c1a-9d43-0c9f1f6f2a11"),
		Started:   started,
		Finished:  started.Add(time.Minute),
		Succeeded: 1,
		Failed:    1,
		Skipped:   1,
		Results: []runner.PairResult{
			{UserID: "user-1", Source: "tamo", Success: true, GradesCount: 4},
			{UserID: "user-2", Source: "tamo", Reason: "timeout", Error: "tamo did not respond in time"},
			{UserID: "user-3", Source: "tamo", Skipped: true, Reason: runner.ReasonCooldown},
		},
	}
}

func TestNotify(t *testing.T) {
	sender := &capturingSender{}
	mailer := NewMailerWithSender(Options{
		Smtp:       SmtpConfig{EmailAddress: "gradesync@example.lt"},
		Recipients: []string{"ops@example.lt"},
	}, sender)

	require.NoError(t, mailer.Notify(context.Background(), sampleReport()))
	require.Len(t, sender.sent, 1)

	mail := sender.sent[0]
	require.Equal(t, []string{"ops@example.lt"}, mail.To)
	require.Equal(t, "Grade sync: 1 succeeded, 1 failed, 1 skipped", mail.Subject)

	body := string(mail.Text)
	require.Contains(t, body, "- user-2 / tamo: timeout (tamo did not respond in time)")
	require.Contains(t, body, "- user-3 / tamo: cooldown (cooldown)")
	require.NotContains(t, body, "user-1")
}

func TestNotifySkips(t *testing.T) {
	sender := &capturingSender{}

	noRecipients := NewMailerWithSender(Options{}, sender)
	require.NoError(t, noRecipients.Notify(context.Background(), sampleReport()))

	clean := sampleReport()
	clean.Failed = 0
	onlyFailures := NewMailerWithSender(Options{Recipients: []string{"ops@example.lt"}, OnlyFailures: true}, sender)
	require.NoError(t, onlyFailures.Notify(context.Background(), clean))

	require.Empty(t, sender.sent)
}

func TestBodyListFailure(t *testing.T) {
	report := runner.Report{Error: "database is locked"}
	require.Equal(t, "Grade sync failed to start", Subject(report))
	require.Contains(t, Body(report), "could not list saved credentials: database is locked")
}
