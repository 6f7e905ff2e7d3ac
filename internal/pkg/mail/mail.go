package mail

import (
	"context"
	"io"
)

// Message is an email payload.
type Message struct {
	// From overrides the configured sender address.
	From string
	To   []string
	Cc   []string
	Bcc  []string

	Subject string
	// TextBody is the plain-text part.
	TextBody string
	// HTMLBody is sent as an alternative to TextBody when both are set.
	HTMLBody string
}

// Mail abstracts an email provider.
type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}
