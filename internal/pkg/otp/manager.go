package otp

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/atomic"
)

// DefaultValidity is how long a passcode stays usable when none is configured.
const DefaultValidity = 5 * time.Minute

// Manager composes a Generator and a Store into the issue/verify protocol.
type Manager struct {
	gen      Generator
	store    Store
	validity time.Duration

	issued atomic.Int64
	swept  atomic.Int64
}

// NewManager returns a Manager. A non-positive validity falls back to DefaultValidity.
func NewManager(gen Generator, store Store, validity time.Duration) *Manager {
	if validity <= 0 {
		validity = DefaultValidity
	}

	return &Manager{
		gen:      gen,
		store:    store,
		validity: validity,
	}
}

// Validity returns the configured lifetime of a session.
func (m *Manager) Validity() time.Duration {
	return m.validity
}

// RequestOTP creates a session for identity and returns its id and code.
//
// It does not rate limit; callers gate it. An expiry sweep runs after the
// session is stored.
func (m *Manager) RequestOTP(identity string) (sessionID, code string, err error) {
	code, err = m.gen.GenerateCode()
	if err != nil {
		return "", "", err
	}

	sessionID, err = m.store.Create(identity, code, m.validity)
	if err != nil {
		return "", "", err
	}
	m.issued.Inc()

	m.sweep()

	return sessionID, code, nil
}

// Verify consumes the session when the submitted code settles it.
func (m *Manager) Verify(sessionID, code string) Outcome {
	return m.store.ConsumeIfValid(sessionID, code)
}

// VerifyOTP returns (true, identity) on success and (false, reason) otherwise.
func (m *Manager) VerifyOTP(sessionID, code string) (bool, string) {
	out := m.Verify(sessionID, code)
	if out.OK() {
		return true, out.Identity
	}

	return false, out.Status.Reason()
}

// ActiveSessions returns the number of sessions held by the store.
func (m *Manager) ActiveSessions() int {
	return m.store.Len()
}

// Stats returns the number of sessions issued and swept since start.
func (m *Manager) Stats() (issued, swept int64) {
	return m.issued.Load(), m.swept.Load()
}

// RunSweeper sweeps expired sessions every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.sweep(); n > 0 {
				slog.DebugContext(ctx, "expired otp sessions swept", "count", n)
			}
		}
	}
}

func (m *Manager) sweep() int {
	n := m.store.SweepExpired()
	m.swept.Add(int64(n))
	return n
}
