package otp

import (
	"context"
	"testing"
	"time"

	"github.com/shandysiswandi/passgate/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedGenerator struct {
	code    string
	codeErr error
	*Random
}

func (f fixedGenerator) GenerateCode() (string, error) {
	return f.code, f.codeErr
}

func newTestManager(t *testing.T, code string) (*Manager, *clock.Manual) {
	t.Helper()

	clk := clock.NewManual(t0)
	gen := fixedGenerator{code: code, Random: NewRandom(6)}
	return NewManager(gen, NewMemoryStore(clk, gen, 3), 5*time.Minute), clk
}

func TestManager_VerifyBeforeExpiry(t *testing.T) {
	// Arrange
	m, clk := newTestManager(t, "482913")
	id, code, err := m.RequestOTP("a@x.com")
	require.NoError(t, err)
	require.Equal(t, "482913", code)

	// Act
	clk.Advance(4*time.Minute + 59*time.Second)
	ok, identity := m.VerifyOTP(id, code)

	// Assert
	assert.True(t, ok)
	assert.Equal(t, "a@x.com", identity)
}

func TestManager_VerifyOTPReasons(t *testing.T) {
	m, clk := newTestManager(t, "482913")
	id, _, err := m.RequestOTP("a@x.com")
	require.NoError(t, err)

	ok, reason := m.VerifyOTP(id, "000000")
	assert.False(t, ok)
	assert.Equal(t, "Invalid OTP", reason)

	m.VerifyOTP(id, "111111")
	m.VerifyOTP(id, "222222")
	ok, reason = m.VerifyOTP(id, "482913")
	assert.False(t, ok)
	assert.Equal(t, "Too many attempts", reason)

	id, _, err = m.RequestOTP("a@x.com")
	require.NoError(t, err)
	clk.Advance(6 * time.Minute)
	ok, reason = m.VerifyOTP(id, "482913")
	assert.False(t, ok)
	assert.Equal(t, "OTP expired or invalid session", reason)
}

func TestManager_RequestOTPSweepsExpired(t *testing.T) {
	m, clk := newTestManager(t, "482913")
	_, _, err := m.RequestOTP("old@x.com")
	require.NoError(t, err)

	clk.Advance(10 * time.Minute)
	_, _, err = m.RequestOTP("new@x.com")
	require.NoError(t, err)

	assert.Equal(t, 1, m.ActiveSessions())
	issued, swept := m.Stats()
	assert.Equal(t, int64(2), issued)
	assert.Equal(t, int64(1), swept)
}

func TestManager_RequestOTPGenerationFailure(t *testing.T) {
	clk := clock.NewManual(t0)
	gen := fixedGenerator{codeErr: errEntropy, Random: NewRandom(6)}
	m := NewManager(gen, NewMemoryStore(clk, gen, 3), time.Minute)

	_, _, err := m.RequestOTP("a@x.com")

	assert.ErrorIs(t, err, errEntropy)
	assert.Equal(t, 0, m.ActiveSessions())
}

func TestManager_DefaultValidity(t *testing.T) {
	m := NewManager(NewRandom(6), NewMemoryStore(clock.New(), NewRandom(6), 3), 0)

	assert.Equal(t, DefaultValidity, m.Validity())
}

func TestManager_RunSweeper(t *testing.T) {
	m, clk := newTestManager(t, "482913")
	_, _, err := m.RequestOTP("a@x.com")
	require.NoError(t, err)
	clk.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.RunSweeper(ctx, 5*time.Millisecond) }()

	assert.Eventually(t, func() bool { return m.ActiveSessions() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
