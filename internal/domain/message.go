package domain

import "time"

// Message is one relayed chat line as it is broadcast and logged.
type Message struct {
	Text      string   `json:"message"`
	Sender    string   `json:"sender"`
	UserID    UserID   `json:"userId"`
	Room      RoomName `json:"roomId"`
	Timestamp int64    `json:"timestamp"`
}

// NewMessage stamps the message with wall-clock milliseconds.
func NewMessage(text string, from *User, room RoomName) Message {
	return Message{
		Text:      text,
		Sender:    from.Username,
		UserID:    from.ID,
		Room:      room,
		Timestamp: time.Now().UnixMilli(),
	}
}
