package core

import (
	"encoding/json"
	"time"

	"github.com/dkeye/Relay/internal/domain"
)

// Outbound event types.
const (
	TypeServerInfo      = "server_info"
	TypeRequireIdentity = "require_identity"
	TypeIdentity        = "identity"
	TypeIdentifyError   = "identify_error"
	TypeError           = "error"
	TypeRoomState       = "room_state"
	TypeSystem          = "system"
	TypeChat            = "chat"
	TypeWhoAmI          = "whoami"
)

// Error codes carried by identify_error and error events.
const (
	CodeNameTaken     = "NAME_TAKEN"
	CodeNameInvalid   = "NAME_INVALID"
	CodeNotIdentified = "NOT_IDENTIFIED"
)

type ServerInfoEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

type RequireIdentityEvent struct {
	Type string `json:"type"`
}

type IdentityEvent struct {
	Type   string        `json:"type"`
	Name   string        `json:"name"`
	UserID domain.UserID `json:"userId"`
}

type IdentifyErrorEvent struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

type ErrorEvent struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

type RoomStateEvent struct {
	Type        string          `json:"type"`
	Room        domain.RoomName `json:"roomId"`
	MemberCount int             `json:"memberCount"`
}

type SystemEvent struct {
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	Room      domain.RoomName `json:"roomId"`
	Timestamp int64           `json:"timestamp"`
}

// ChatEvent flattens the message fields next to the type tag.
type ChatEvent struct {
	Type string `json:"type"`
	domain.Message
}

type WhoAmIEvent struct {
	Type string          `json:"type"`
	Name string          `json:"name,omitempty"`
	Room domain.RoomName `json:"roomId,omitempty"`
}

func NewSystemEvent(text string, room domain.RoomName) SystemEvent {
	return SystemEvent{
		Type:      TypeSystem,
		Message:   text,
		Room:      room,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Encode marshals an outbound event into a wire frame.
func Encode(v any) (Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}
