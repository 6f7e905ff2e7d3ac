// Package notifier delivers issued passcodes to their recipient. Drivers:
// mail (SMTP with retry), broker (publishes a dispatch event for the
// notification module) and log (local development).
package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	DriverMail   = "mail"
	DriverBroker = "broker"
	DriverLog    = "log"
)

var (
	ErrUnknownDriver = errors.New("notifier: unknown driver")
	// ErrDelivery wraps every failure reported by Send.
	ErrDelivery = errors.New("notifier: delivery failed")
)

// Notifier sends code to identity. It is called after the session exists and
// never while a store lock is held.
type Notifier interface {
	Send(ctx context.Context, identity, code string) error
}

// FactoryOptions groups per-driver configuration.
type FactoryOptions struct {
	Mail   MailOptions
	Broker BrokerOptions
}

// NewFromDriver builds the Notifier named by driver. Empty selects log.
func NewFromDriver(driver string, opts FactoryOptions) (Notifier, error) {
	switch strings.TrimSpace(driver) {
	case DriverMail:
		return NewMail(opts.Mail)
	case DriverBroker:
		return NewBroker(opts.Broker)
	case DriverLog, "":
		return NewLog(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}

func deliveryError(err error) error {
	return fmt.Errorf("%w: %w", ErrDelivery, err)
}
