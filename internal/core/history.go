package core

import "github.com/dkeye/Relay/internal/domain"

// HistoryBuffer is a bounded FIFO log of broadcast messages. It is an
// internal audit record for the process lifetime; it is never replayed
// to joining clients.
//
// Not self-locking: the orchestrator serializes all access.
type HistoryBuffer struct {
	cap     int
	entries []domain.Message
}

func NewHistoryBuffer(cap int) *HistoryBuffer {
	if cap <= 0 {
		cap = 100
	}
	return &HistoryBuffer{cap: cap}
}

// Append pushes a message, evicting the oldest entries once the cap is
// exceeded.
func (h *HistoryBuffer) Append(msg domain.Message) {
	h.entries = append(h.entries, msg)
	if len(h.entries) > h.cap {
		h.entries = h.entries[len(h.entries)-h.cap:]
	}
}

func (h *HistoryBuffer) Len() int { return len(h.entries) }

// Entries returns a copy of the log, oldest first.
func (h *HistoryBuffer) Entries() []domain.Message {
	out := make([]domain.Message, len(h.entries))
	copy(out, h.entries)
	return out
}

// Reset drops the log. Used when the default room empties.
func (h *HistoryBuffer) Reset() {
	h.entries = nil
}
