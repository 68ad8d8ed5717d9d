package core

// Frame is a raw wire payload (JSON text on the websocket).
type Frame []byte

// SessionID is the opaque per-connection handle issued by the
// transport layer. The core keys everything by it and never touches
// transport internals.
type SessionID string

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend enqueues a frame without blocking. A full buffer or a
	// closed connection returns an error; the caller drops the frame.
	TrySend(Frame) error
	// IsOpen reports whether the connection can still accept frames.
	IsOpen() bool
	// Ping emits a heartbeat probe on the wire.
	Ping() error
	Close()
}

// PublishResult reports fan-out delivery stats.
type PublishResult struct {
	SentTo  int
	Skipped int
}

// RoomInfo is a read-only view for APIs (no transport fields).
type RoomInfo struct {
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
}
