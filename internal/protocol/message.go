// Package protocol defines the event envelope exchanged between the relay
// and its clients, the event names, and the wire codecs.
package protocol

import "encoding/json"

// Message is the envelope for every client-to-relay and relay-to-client event.
// Payload holds a generic decoded value (string, number, map, slice) so it can
// be re-encoded for recipients that speak a different codec.
type Message struct {
	Type    string `json:"type" msgpack:"type"`
	Payload any    `json:"payload,omitempty" msgpack:"payload,omitempty"`
}

// Inbound events.
const (
	EventCreateRoom     = "createRoom"
	EventJoinRoom       = "joinRoom"
	EventLocationUpdate = "locationUpdate"
)

// Outbound events.
const (
	EventWelcome           = "welcome"
	EventRoomCreated       = "roomCreated"
	EventRoomJoined        = "roomJoined"
	EventRoomError         = "roomError"
	EventUserJoined        = "userJoined"
	EventUserLeft          = "userLeft"
	EventOtherUserLocation = "otherUserLocation"
)

// Room error messages shown to the requester.
const (
	MsgRoomExists   = "Room ID already exists. Try joining instead."
	MsgRoomNotFound = "Room does not exist."
)

// Location is the payload of locationUpdate and otherUserLocation.
// The relay forwards the sender's payload as-is; this type is only used to
// read it and by clients to build it.
type Location struct {
	Lat          float64 `json:"lat" msgpack:"lat"`
	Lon          float64 `json:"lon" msgpack:"lon"`
	ConnectionID string  `json:"connectionId" msgpack:"connectionId"`
	DisplayName  string  `json:"displayName,omitempty" msgpack:"displayName,omitempty"`
}

// Welcome tells a client its own connection identity.
type Welcome struct {
	ConnectionID string `json:"connectionId" msgpack:"connectionId"`
	DisplayName  string `json:"displayName" msgpack:"displayName"`
}

// New builds a message with the given type and payload.
func New(eventType string, payload any) *Message {
	return &Message{Type: eventType, Payload: payload}
}

// DecodePayload converts the generic payload into dst by way of JSON.
// Works for payloads produced by either codec.
func (m *Message) DecodePayload(dst any) error {
	b, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// StringPayload returns the payload when it is a string.
func (m *Message) StringPayload() (string, bool) {
	s, ok := m.Payload.(string)
	return s, ok
}

// LocationPayload reads a location payload. ok is false when the payload is
// not an object or carries no numeric coordinates.
func (m *Message) LocationPayload() (Location, bool) {
	obj, isObject := m.Payload.(map[string]any)
	if !isObject {
		return Location{}, false
	}
	if _, ok := obj["lat"]; !ok {
		return Location{}, false
	}
	if _, ok := obj["lon"]; !ok {
		return Location{}, false
	}

	var loc Location
	if err := m.DecodePayload(&loc); err != nil {
		return Location{}, false
	}
	return loc, true
}
