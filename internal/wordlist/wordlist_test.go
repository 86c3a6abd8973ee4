package wordlist

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayName(t *testing.T) {
	for i := 0; i < 50; i++ {
		parts := strings.Split(DisplayName(), "-")
		require.Len(t, parts, 2)
		assert.True(t, slices.Contains(adjectives, parts[0]), parts[0])
		assert.True(t, slices.Contains(animals, parts[1]), parts[1])
	}
}

func TestRoomIDFormat(t *testing.T) {
	id := RoomID(nil)
	parts := strings.Split(id, "-")
	require.Len(t, parts, 4)
	assert.Contains(t, places, parts[3])
}

func TestRoomIDSkipsTaken(t *testing.T) {
	calls := 0
	id := RoomID(func(string) bool {
		calls++
		return calls < 3
	})

	assert.NotEmpty(t, id)
	assert.Equal(t, 3, calls)
}
