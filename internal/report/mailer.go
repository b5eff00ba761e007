// SPDX-License-Identifier: MIT

package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/voxhire/voxhire/internal/config"
	"github.com/voxhire/voxhire/internal/log"
	"github.com/voxhire/voxhire/internal/metrics"
	"github.com/voxhire/voxhire/internal/session"
)

// ErrNotConfigured is returned when SMTP settings are incomplete.
var ErrNotConfigured = errors.New("report: email not configured")

const sendAttempts = 3

// sendBaseDelay is shortened in tests.
var sendBaseDelay = time.Second

// Mailer delivers rendered reports over SMTP.
type Mailer struct {
	cfg    config.EmailConfig
	logger zerolog.Logger
	send   func(ctx context.Context, msgs ...*mail.Msg) error
}

// NewMailer builds a mailer from the email configuration.
func NewMailer(cfg config.EmailConfig) *Mailer {
	m := &Mailer{
		cfg:    cfg,
		logger: log.WithComponent("report"),
	}
	m.send = m.smtpSend
	return m
}

// Configured reports whether SMTP dispatch is possible.
func (m *Mailer) Configured() bool {
	return m.cfg.Host != "" && m.cfg.From != ""
}

// SendReport emails the rendered report to the candidate, plus a copy to HR
// when an address is configured. Failed sends are retried with exponential
// backoff before giving up.
func (m *Mailer) SendReport(ctx context.Context, sess *session.Session, pdf []byte) error {
	if !m.Configured() {
		return ErrNotConfigured
	}

	candidate, err := m.compose(
		sess.CandidateEmail,
		"Your Interview Assessment Report",
		candidateBodyText,
		candidateBodyHTML,
		sess.ID, pdf,
	)
	if err != nil {
		return err
	}
	msgs := []*mail.Msg{candidate}

	if m.cfg.HRAddr != "" {
		hr, err := m.compose(
			m.cfg.HRAddr,
			fmt.Sprintf("Interview Assessment Report - %s", sess.CandidateEmail),
			fmt.Sprintf(hrBodyTextTmpl, sess.CandidateEmail, sess.ID),
			fmt.Sprintf(hrBodyHTMLTmpl, sess.CandidateEmail, sess.ID),
			sess.ID, pdf,
		)
		if err != nil {
			return err
		}
		msgs = append(msgs, hr)
	}

	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, sendBaseDelay<<(attempt-2)); err != nil {
				return err
			}
		}
		lastErr = m.send(ctx, msgs...)
		if lastErr == nil {
			metrics.IncEmailSendAttempt("success")
			m.logger.Info().
				Str("session_id", sess.ID).
				Str("to", sess.CandidateEmail).
				Int("recipients", len(msgs)).
				Str("event", "report.sent").
				Msg("report emailed")
			return nil
		}
		metrics.IncEmailSendAttempt("error")
		m.logger.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Str("event", "report.send_retry").
			Msg("report send failed")
	}
	return fmt.Errorf("report: send failed after %d attempts: %w", sendAttempts, lastErr)
}

func (m *Mailer) compose(to, subject, textBody, htmlBody, sessionID string, pdf []byte) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("report: from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("report: to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, textBody)
	msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)
	if err := msg.AttachReader(ReportFilename(sessionID), bytes.NewReader(pdf)); err != nil {
		return nil, fmt.Errorf("report: attach pdf: %w", err)
	}
	return msg, nil
}

func (m *Mailer) smtpSend(ctx context.Context, msgs ...*mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("report: smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msgs...)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

const candidateBodyHTML = `<html><body>
<h2>Interview Assessment Report</h2>
<p>Dear Candidate,</p>
<p>Thank you for participating in the interview. Please find your interview assessment report attached as a PDF document.</p>
<p>The report includes:</p>
<ul>
<li>Your interview responses and analysis</li>
<li>Assessment of your qualifications and fit</li>
<li>Feedback and recommendations</li>
</ul>
<p>If you have any questions about the report, please don't hesitate to contact us.</p>
<p>Best regards,<br>Interview Team</p>
</body></html>`

const candidateBodyText = `Dear Candidate,

Thank you for participating in the interview. Please find your interview
assessment report attached as a PDF document.

The report includes your interview responses and analysis, an assessment
of your qualifications and fit, and feedback and recommendations.

If you have any questions about the report, please don't hesitate to
contact us.

Best regards,
Interview Team`

const hrBodyHTMLTmpl = `<html><body>
<h2>Interview Assessment Report for Review</h2>
<p>Dear HR Team,</p>
<p>Please find the interview assessment report for candidate %s attached as a PDF document.</p>
<p>Session ID: %s</p>
<p>Please review the candidate's performance and qualifications, and take appropriate action regarding their application.</p>
<p>Best regards,<br>Interview System</p>
</body></html>`

const hrBodyTextTmpl = `Dear HR Team,

Please find the interview assessment report for candidate %s attached as a
PDF document.

Session ID: %s

Please review the candidate's performance and qualifications, and take
appropriate action regarding their application.

Best regards,
Interview System`
