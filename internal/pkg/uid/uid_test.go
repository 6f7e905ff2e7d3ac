package uid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflake_Monotonic(t *testing.T) {
	s, err := NewSnowflakeNode(7)
	require.NoError(t, err)

	prev := s.Generate()
	for range 100 {
		next := s.Generate()
		assert.Greater(t, next, prev)
		prev = next
	}

	_, err = NewSnowflakeNode(4096)
	assert.Error(t, err)
}

func TestUUID_Generate(t *testing.T) {
	id, err := uuid.Parse(NewUUID().Generate())
	require.NoError(t, err)

	assert.Equal(t, uuid.Version(7), id.Version())
}
