package otp

import (
	"crypto/subtle"
	"sync"
	"time"

	"github.com/shandysiswandi/passgate/internal/pkg/clock"
)

// DefaultMaxAttempts is the number of failed comparisons a session tolerates.
const DefaultMaxAttempts = 3

// Store owns live sessions.
type Store interface {
	// Create allocates a session for identity and returns its id.
	Create(identity, code string, validity time.Duration) (string, error)
	// ConsumeIfValid checks submitted against the session and consumes it when
	// the check is terminal.
	ConsumeIfValid(sessionID, submitted string) Outcome
	// SweepExpired drops every expired session and returns how many went.
	SweepExpired() int
	// Len returns the number of live sessions.
	Len() int
}

type sessionIDGenerator interface {
	GenerateSessionID() (string, error)
}

// MemoryStore is a Store backed by a map guarded by a single mutex.
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	clock       clock.Clocker
	ids         sessionIDGenerator
	maxAttempts int
}

// NewMemoryStore returns an empty MemoryStore.
//
// maxAttempts below 1 falls back to DefaultMaxAttempts.
func NewMemoryStore(clk clock.Clocker, ids sessionIDGenerator, maxAttempts int) *MemoryStore {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}

	return &MemoryStore{
		sessions:    make(map[string]*Session),
		clock:       clk,
		ids:         ids,
		maxAttempts: maxAttempts,
	}
}

// Create stores a new session. The id is regenerated until it is unused.
func (s *MemoryStore) Create(identity, code string, validity time.Duration) (string, error) {
	for {
		id, err := s.ids.GenerateSessionID()
		if err != nil {
			return "", err
		}

		s.mu.Lock()
		if _, taken := s.sessions[id]; taken {
			s.mu.Unlock()
			continue
		}

		now := s.clock.Now()
		s.sessions[id] = &Session{
			ID:        id,
			Identity:  identity,
			Code:      code,
			CreatedAt: now,
			ExpiresAt: now.Add(validity),
		}
		s.mu.Unlock()

		return id, nil
	}
}

// ConsumeIfValid runs the verification checks in order: presence, expiry,
// attempt budget, then code comparison.
func (s *MemoryStore) ConsumeIfValid(sessionID, submitted string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Outcome{Status: StatusExpiredOrMissing}
	}

	if s.clock.Now().After(sess.ExpiresAt) {
		delete(s.sessions, sessionID)
		return Outcome{Status: StatusExpiredOrMissing}
	}

	if sess.Attempts >= s.maxAttempts {
		delete(s.sessions, sessionID)
		return Outcome{Status: StatusTooManyAttempts}
	}

	if subtle.ConstantTimeCompare([]byte(sess.Code), []byte(submitted)) == 1 {
		delete(s.sessions, sessionID)
		return Outcome{Status: StatusSuccess, Identity: sess.Identity}
	}

	sess.Attempts++
	return Outcome{Status: StatusMismatch}
}

// SweepExpired removes sessions whose expiry has passed.
func (s *MemoryStore) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for id, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}

	return removed
}

// Len returns the number of live sessions, expired ones not yet swept included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}
