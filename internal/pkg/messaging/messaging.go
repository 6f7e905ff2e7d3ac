package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrUnsupported is returned when the selected broker lacks a feature.
var ErrUnsupported = errors.New("messaging: unsupported operation")

// ErrHandlerRequired is returned when Consume is called with a nil handler.
var ErrHandlerRequired = errors.New("messaging: handler is required")

// ErrDestinationRequired is returned when the topic/subject is empty.
var ErrDestinationRequired = errors.New("messaging: destination is required")

// Messaging can publish and consume.
type Messaging interface {
	io.Closer
	Publisher
	Consumer
}

// Publisher sends messages to a destination (topic or subject).
type Publisher interface {
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// Consumer blocks delivering messages from source to handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes one message. With auto-ack a nil error acks and a non-nil
// error requeues.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage is a message to publish.
type OutgoingMessage struct {
	Body    []byte
	Headers []Header
	// Delay defers delivery where the broker supports it.
	Delay time.Duration
}

// Header is a message header. NSQ has no headers and drops them.
type Header struct {
	Key   string
	Value []byte
}

// PublishResult describes an accepted publish.
type PublishResult struct {
	Destination string
	Timestamp   time.Time
}

// Message is a received message.
type Message interface {
	ID() string
	Body() []byte
	Headers() []Header
	Timestamp() time.Time
	// Attempts is the delivery count when the broker tracks it, else 1.
	Attempts() int

	Ack(ctx context.Context) error
	Nack(ctx context.Context) error
}

// HeaderValue returns the first header named key.
func HeaderValue(headers []Header, key string) (string, bool) {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}
