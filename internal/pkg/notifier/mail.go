package notifier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/passgate/internal/pkg/mail"
)

const (
	defaultMailRetries = 2
	defaultMailBackoff = 200 * time.Millisecond
	maxMailBackoff     = 2 * time.Second
)

var ErrMailClientRequired = errors.New("notifier: mail client is required")

// MailOptions configures the mail driver.
type MailOptions struct {
	Client mail.Mail
	// Validity is shown to the recipient as whole minutes.
	Validity time.Duration
	Subject  string
	// Product and Team override the names rendered in the body.
	Product string
	Team    string
	// Retries is the number of extra attempts after the first failure; a
	// negative value disables retrying.
	Retries int
	Backoff time.Duration
}

// Mail renders the passcode email and sends it, retrying transient failures
// with a capped Fibonacci backoff.
type Mail struct {
	client   mail.Mail
	validity time.Duration
	subject  string
	product  string
	team     string
	retries  uint64
	backoff  time.Duration
}

func NewMail(opts MailOptions) (*Mail, error) {
	if opts.Client == nil {
		return nil, ErrMailClientRequired
	}

	m := &Mail{
		client:   opts.Client,
		validity: opts.Validity,
		subject:  opts.Subject,
		product:  opts.Product,
		team:     opts.Team,
		retries:  defaultMailRetries,
		backoff:  opts.Backoff,
	}
	if m.subject == "" {
		m.subject = DefaultSubject
	}
	switch {
	case opts.Retries < 0:
		m.retries = 0
	case opts.Retries > 0:
		m.retries = uint64(opts.Retries)
	}
	if m.backoff <= 0 {
		m.backoff = defaultMailBackoff
	}

	return m, nil
}

// Message builds the email for identity without sending it.
func (m *Mail) Message(identity, code string) (mail.Message, error) {
	c := NewContent(code, m.validity)
	if m.product != "" {
		c.Product = m.product
	}
	if m.team != "" {
		c.Team = m.team
	}

	text, html, err := c.Render()
	if err != nil {
		return mail.Message{}, err
	}

	return mail.Message{
		To:       []string{identity},
		Subject:  m.subject,
		TextBody: text,
		HTMLBody: html,
	}, nil
}

func (m *Mail) Send(ctx context.Context, identity, code string) error {
	msg, err := m.Message(identity, code)
	if err != nil {
		return deliveryError(err)
	}

	b := retry.WithMaxRetries(m.retries, retry.WithCappedDuration(maxMailBackoff, retry.NewFibonacci(m.backoff)))

	attempt := 0
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := m.client.Send(ctx, msg)
		if err == nil {
			return nil
		}
		if permanentMailError(err) {
			return err
		}
		slog.WarnContext(ctx, "passcode email attempt failed", "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})
	if err != nil {
		return deliveryError(err)
	}

	return nil
}

func permanentMailError(err error) bool {
	return errors.Is(err, mail.ErrSMTPNoRecipients) ||
		errors.Is(err, mail.ErrSMTPNoSender) ||
		errors.Is(err, mail.ErrSMTPNoBody) ||
		errors.Is(err, mail.ErrSMTPHostPortRequired) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
