package domain

type RoomName string

// DefaultRoom is where clients land when they join (or chat) without
// naming a room.
const DefaultRoom RoomName = "main"
