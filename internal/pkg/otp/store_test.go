package otp

import (
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/passgate/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

type sequenceIDs struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (s *sequenceIDs) GenerateSessionID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return "", s.err
	}
	id := s.ids[0]
	s.ids = s.ids[1:]
	return id, nil
}

func newTestStore(t *testing.T) (*MemoryStore, *clock.Manual) {
	t.Helper()

	clk := clock.NewManual(t0)
	return NewMemoryStore(clk, NewRandom(6), 3), clk
}

func TestMemoryStore_ConsumeIfValid(t *testing.T) {
	// Arrange
	store, _ := newTestStore(t)
	id, err := store.Create("a@x.com", "482913", 5*time.Minute)
	require.NoError(t, err)

	// Act
	out := store.ConsumeIfValid(id, "482913")

	// Assert
	assert.Equal(t, Outcome{Status: StatusSuccess, Identity: "a@x.com"}, out)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_SingleConsumption(t *testing.T) {
	store, _ := newTestStore(t)
	id, err := store.Create("a@x.com", "482913", 5*time.Minute)
	require.NoError(t, err)

	require.True(t, store.ConsumeIfValid(id, "482913").OK())

	assert.Equal(t, StatusExpiredOrMissing, store.ConsumeIfValid(id, "482913").Status)
}

func TestMemoryStore_UnknownSession(t *testing.T) {
	store, _ := newTestStore(t)

	assert.Equal(t, StatusExpiredOrMissing, store.ConsumeIfValid("nope", "123456").Status)
}

func TestMemoryStore_AttemptBound(t *testing.T) {
	store, _ := newTestStore(t)
	id, err := store.Create("a@x.com", "482913", 5*time.Minute)
	require.NoError(t, err)

	for _, wrong := range []string{"000000", "111111", "222222"} {
		assert.Equal(t, StatusMismatch, store.ConsumeIfValid(id, wrong).Status)
	}

	assert.Equal(t, StatusTooManyAttempts, store.ConsumeIfValid(id, "482913").Status)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, StatusExpiredOrMissing, store.ConsumeIfValid(id, "482913").Status)
}

func TestMemoryStore_Expiry(t *testing.T) {
	tests := []struct {
		name    string
		advance time.Duration
		want    Status
	}{
		{name: "just before expiry", advance: 4*time.Minute + 59*time.Second, want: StatusSuccess},
		{name: "exactly at expiry", advance: 5 * time.Minute, want: StatusSuccess},
		{name: "after expiry", advance: 5*time.Minute + time.Nanosecond, want: StatusExpiredOrMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, clk := newTestStore(t)
			id, err := store.Create("a@x.com", "482913", 5*time.Minute)
			require.NoError(t, err)

			clk.Advance(tt.advance)

			assert.Equal(t, tt.want, store.ConsumeIfValid(id, "482913").Status)
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestMemoryStore_ExpiryWinsOverAttempts(t *testing.T) {
	store, clk := newTestStore(t)
	id, err := store.Create("a@x.com", "482913", time.Minute)
	require.NoError(t, err)
	for range 3 {
		store.ConsumeIfValid(id, "000000")
	}

	clk.Advance(2 * time.Minute)

	assert.Equal(t, StatusExpiredOrMissing, store.ConsumeIfValid(id, "482913").Status)
}

func TestMemoryStore_CreateRegeneratesCollidingID(t *testing.T) {
	ids := &sequenceIDs{ids: []string{"dup", "dup", "fresh"}}
	store := NewMemoryStore(clock.NewManual(t0), ids, 3)

	first, err := store.Create("a@x.com", "111111", time.Minute)
	require.NoError(t, err)
	second, err := store.Create("b@x.com", "222222", time.Minute)
	require.NoError(t, err)

	assert.Equal(t, "dup", first)
	assert.Equal(t, "fresh", second)
	assert.Equal(t, "a@x.com", store.ConsumeIfValid("dup", "111111").Identity)
}

func TestMemoryStore_CreateEntropyFailure(t *testing.T) {
	store := NewMemoryStore(clock.NewManual(t0), &sequenceIDs{err: errEntropy}, 3)

	_, err := store.Create("a@x.com", "111111", time.Minute)

	assert.ErrorIs(t, err, errEntropy)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_SweepExpired(t *testing.T) {
	store, clk := newTestStore(t)
	_, err := store.Create("old@x.com", "111111", time.Minute)
	require.NoError(t, err)
	clk.Advance(2 * time.Minute)
	live, err := store.Create("new@x.com", "222222", time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 1, store.SweepExpired())
	assert.Equal(t, 1, store.Len())
	assert.True(t, store.ConsumeIfValid(live, "222222").OK())
}

func TestMemoryStore_Isolation(t *testing.T) {
	store, _ := newTestStore(t)
	a, err := store.Create("a@x.com", "111111", time.Minute)
	require.NoError(t, err)
	b, err := store.Create("b@x.com", "222222", time.Minute)
	require.NoError(t, err)

	for range 4 {
		store.ConsumeIfValid(a, "999999")
	}

	assert.Equal(t, Outcome{Status: StatusSuccess, Identity: "b@x.com"}, store.ConsumeIfValid(b, "222222"))
}

func TestMemoryStore_ConcurrentConsumeSucceedsOnce(t *testing.T) {
	store, _ := newTestStore(t)
	id, err := store.Create("a@x.com", "482913", time.Minute)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range 32 {
		wg.Go(func() {
			if store.ConsumeIfValid(id, "482913").OK() {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestMemoryStore_DefaultMaxAttempts(t *testing.T) {
	store := NewMemoryStore(clock.NewManual(t0), NewRandom(6), 0)

	assert.Equal(t, DefaultMaxAttempts, store.maxAttempts)
}
