package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACSHA256(t *testing.T) {
	h := NewHMACSHA256("secret")

	sum, err := h.Hash("a@x.com")
	require.NoError(t, err)

	assert.Len(t, sum, 64)
	again, err := h.Hash("a@x.com")
	require.NoError(t, err)
	assert.Equal(t, sum, again)
	assert.True(t, h.Verify(string(sum), "a@x.com"))
	assert.False(t, h.Verify(string(sum), "b@x.com"))
	other, err := NewHMACSHA256("other").Hash("a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, sum, other)
}
