package relay

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryCreate(t *testing.T) {
	d := NewDirectory()

	require.NoError(t, d.Create("R1", "a"))
	assert.True(t, d.Exists("R1"))
	assert.Equal(t, 1, d.Len())

	err := d.Create("R1", "c")
	assert.ErrorIs(t, err, ErrRoomExists)
	assert.Equal(t, []string{"a"}, d.MembersExcept("R1", ""), "failed create must not change membership")
}

func TestDirectoryJoin(t *testing.T) {
	d := NewDirectory()

	assert.ErrorIs(t, d.Join("nope", "a"), ErrRoomNotFound)
	assert.False(t, d.Exists("nope"))

	require.NoError(t, d.Create("R1", "a"))
	require.NoError(t, d.Join("R1", "b"))
	require.NoError(t, d.Join("R1", "b"))

	assert.Equal(t, []string{"a", "b"}, d.MembersExcept("R1", ""))
	assert.Equal(t, []RoomInfo{{ID: "R1", Members: 2}}, d.Snapshot())
}

func TestDirectoryLeave(t *testing.T) {
	d := NewDirectory()
	require.NoError(t, d.Create("R1", "a"))
	require.NoError(t, d.Join("R1", "b"))

	removed, deleted := d.Leave("R1", "x")
	assert.False(t, removed)
	assert.False(t, deleted)

	removed, deleted = d.Leave("R1", "b")
	assert.True(t, removed)
	assert.False(t, deleted)
	assert.True(t, d.Exists("R1"))

	removed, deleted = d.Leave("R1", "a")
	assert.True(t, removed)
	assert.True(t, deleted)
	assert.False(t, d.Exists("R1"))
	assert.Zero(t, d.Len())

	removed, deleted = d.Leave("R1", "a")
	assert.False(t, removed)
	assert.False(t, deleted)
}

func TestDirectoryMembersExcept(t *testing.T) {
	d := NewDirectory()
	assert.Empty(t, d.MembersExcept("missing", "a"))

	require.NoError(t, d.Create("R1", "a"))
	assert.Empty(t, d.MembersExcept("R1", "a"))

	require.NoError(t, d.Join("R1", "c"))
	require.NoError(t, d.Join("R1", "b"))
	assert.Equal(t, []string{"b", "c"}, d.MembersExcept("R1", "a"))
}

func TestDirectorySnapshotOrdered(t *testing.T) {
	d := NewDirectory()
	require.NoError(t, d.Create("zulu", "a"))
	require.NoError(t, d.Create("alpha", "b"))
	require.NoError(t, d.Join("alpha", "c"))

	assert.Equal(t, []RoomInfo{{ID: "alpha", Members: 2}, {ID: "zulu", Members: 1}}, d.Snapshot())
}

// Random create/join/leave sequences must never leave an empty room behind.
func TestDirectoryNoEmptyRooms(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	d := NewDirectory()
	rooms := []string{"R1", "R2", "R3"}

	for i := 0; i < 2000; i++ {
		room := rooms[rng.Intn(len(rooms))]
		conn := fmt.Sprintf("c%d", rng.Intn(6))

		switch rng.Intn(3) {
		case 0:
			_ = d.Create(room, conn)
		case 1:
			_ = d.Join(room, conn)
		case 2:
			d.Leave(room, conn)
		}

		d.mu.RLock()
		for id, members := range d.rooms {
			require.NotEmptyf(t, members, "room %s is empty after step %d", id, i)
		}
		d.mu.RUnlock()
	}
}

func TestDirectoryReset(t *testing.T) {
	d := NewDirectory()
	require.NoError(t, d.Create("R1", "a"))

	d.Reset()

	assert.Zero(t, d.Len())
	assert.NoError(t, d.Create("R1", "b"))
}
