package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requirement: generated IDs have a fixed length and only use the URL-safe alphabet.
func TestNewID_LengthAndAlphabet(t *testing.T) {
	for i := 0; i < 200; i++ {
		id, err := NewID()
		require.NoError(t, err)

		assert.Len(t, id, IDLength)
		for _, r := range id {
			assert.True(t, strings.ContainsRune(idAlphabet, r), "unexpected rune %q in %s", r, id)
		}
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id, err := NewID()
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s after %d draws", id, i)
		seen[id] = struct{}{}
	}
}

func TestNewID_UsesWholeAlphabet(t *testing.T) {
	used := map[rune]bool{}
	for i := 0; i < 500; i++ {
		id, err := newID(64)
		require.NoError(t, err)
		for _, r := range id {
			used[r] = true
		}
	}

	assert.Len(t, used, len(idAlphabet))
}
