package relay

import "errors"

var (
	// ErrRoomExists is returned when creating a room whose ID is already active.
	ErrRoomExists = errors.New("room already exists")

	// ErrRoomNotFound is returned when joining a room that is not active.
	ErrRoomNotFound = errors.New("room not found")
)
