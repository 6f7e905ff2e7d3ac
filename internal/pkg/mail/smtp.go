package mail

import (
	"context"
	"crypto/tls"
	"errors"

	"gopkg.in/gomail.v2"
)

var (
	// ErrSMTPHostPortRequired is returned when Host/Port are missing.
	ErrSMTPHostPortRequired = errors.New("mail: smtp host and port are required")
	// ErrSMTPNoRecipients is returned when To/Cc/Bcc are all empty.
	ErrSMTPNoRecipients = errors.New("mail: no recipients provided")
	// ErrSMTPNoSender is returned when neither Message.From nor the default sender is set.
	ErrSMTPNoSender = errors.New("mail: no sender provided")
	// ErrSMTPNoBody is returned when both bodies are empty.
	ErrSMTPNoBody = errors.New("mail: message has no body")
)

const implicitTLSPort = 465

// SMTPConfig configures the SMTP sender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the default sender address.
	From string
	// FromName is the display name paired with From.
	FromName string
	// SSL forces implicit TLS. Port 465 implies it.
	SSL bool
	// InsecureSkipVerify disables certificate checks; local relays only.
	InsecureSkipVerify bool
}

// SMTP sends mail through an SMTP relay.
type SMTP struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

// NewSMTP builds an SMTP sender. No connection is opened until Send.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, ErrSMTPHostPortRequired
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.SSL || cfg.Port == implicitTLSPort
	if cfg.InsecureSkipVerify {
		//nolint:gosec // opt-in for local relays
		d.TLSConfig = &tls.Config{ServerName: cfg.Host, InsecureSkipVerify: true}
	}

	return &SMTP{
		dialer:   d,
		from:     cfg.From,
		fromName: cfg.FromName,
	}, nil
}

// Send opens a connection, delivers msg and closes the connection.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := s.build(msg)
	if err != nil {
		return err
	}

	return s.dialer.DialAndSend(m)
}

// Close implements io.Closer. Connections are per message.
func (s *SMTP) Close() error {
	return nil
}

func (s *SMTP) build(msg Message) (*gomail.Message, error) {
	if len(msg.To)+len(msg.Cc)+len(msg.Bcc) == 0 {
		return nil, ErrSMTPNoRecipients
	}
	if msg.TextBody == "" && msg.HTMLBody == "" {
		return nil, ErrSMTPNoBody
	}

	m := gomail.NewMessage()

	switch {
	case msg.From != "":
		m.SetHeader("From", msg.From)
	case s.from != "":
		m.SetAddressHeader("From", s.from, s.fromName)
	default:
		return nil, ErrSMTPNoSender
	}

	if len(msg.To) > 0 {
		m.SetHeader("To", msg.To...)
	}
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", msg.Cc...)
	}
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", msg.Bcc...)
	}
	m.SetHeader("Subject", msg.Subject)

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBody("text/html", msg.HTMLBody)
	default:
		m.SetBody("text/plain", msg.TextBody)
	}

	return m, nil
}
