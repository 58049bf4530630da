package model

import (
	"strings"
	"time"
)

// User is the signed-in account as returned by /auth/me.
type User struct {
	ID       int64
	Username string // unique, immutable after signup
	Nickname string
	Location string // optional
}

// EventType is a client-only category derived from an event's color.
// The backend has no such field; the mapping is provisional.
type EventType string

const (
	EventTypeMeeting  EventType = "meeting"
	EventTypePersonal EventType = "personal"
	EventTypeWork     EventType = "work"
	EventTypeSocial   EventType = "social"
)

// DefaultEventColor is used when a new event has no color.
const DefaultEventColor = "#2EC4B6"

var colorTypes = map[string]EventType{
	"#2ec4b6": EventTypeMeeting,
	"#5bc0eb": EventTypeWork,
	"#4a90e2": EventTypePersonal,
	"#ffd23f": EventTypeSocial,
}

// TypeFromColor maps a hex color to its category. Unknown colors are personal.
func TypeFromColor(color string) EventType {
	if t, ok := colorTypes[strings.ToLower(strings.TrimSpace(color))]; ok {
		return t
	}
	return EventTypePersonal
}

// Event is a calendar entry as held in the client snapshot.
type Event struct {
	// ID is the decimal string form of the backend-assigned integer.
	ID          string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Color       string
	Location    string
	Type        EventType
}

// EventDraft is the input for creating an event. Zero times mean "now".
type EventDraft struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Color       string
	Location    string
}

// EventPatch is a partial update; nil fields are left untouched.
type EventPatch struct {
	Title       *string
	Description *string
	Start       *time.Time
	End         *time.Time
	Color       *string
	Location    *string
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Start == nil &&
		p.End == nil && p.Color == nil && p.Location == nil
}

// FriendStatus mirrors the backend FriendStatus enum.
type FriendStatus string

const (
	FriendPending  FriendStatus = "PENDING"
	FriendAccepted FriendStatus = "ACCEPTED"
	FriendRejected FriendStatus = "REJECTED"
	FriendCancel   FriendStatus = "CANCEL"
)

// Friend is one relationship row as seen from the current session.
type Friend struct {
	// ID is the relationship row id, not either party's account id.
	ID       int64
	Username string
	Nickname string
	Status   FriendStatus
	// IsSender is true when the current account initiated the request.
	IsSender bool
}
