package core

import "github.com/dkeye/Relay/internal/domain"

// Room is an in-memory broadcast domain: the member set plus the
// bounded message log. It owns no transport resources and never closes
// a connection.
//
// Not self-locking: the orchestrator holds the one exclusive guard
// over all rooms, so methods here assume the caller serializes.
type Room struct {
	Name    domain.RoomName
	History *HistoryBuffer

	members map[SessionID]SignalConnection
}

func NewRoom(name domain.RoomName, historyCap int) *Room {
	return &Room{
		Name:    name,
		History: NewHistoryBuffer(historyCap),
		members: make(map[SessionID]SignalConnection),
	}
}

func (r *Room) AddMember(sid SessionID, conn SignalConnection) {
	r.members[sid] = conn
}

func (r *Room) RemoveMember(sid SessionID) {
	delete(r.members, sid)
}

func (r *Room) Has(sid SessionID) bool {
	_, ok := r.members[sid]
	return ok
}

func (r *Room) MemberCount() int { return len(r.members) }

// Broadcast fans a frame out to every current member, sender included.
// Members whose transport is not writable are skipped, not awaited.
func (r *Room) Broadcast(f Frame) PublishResult {
	res := PublishResult{}
	for _, conn := range r.members {
		if !conn.IsOpen() {
			res.Skipped++
			continue
		}
		if err := conn.TrySend(f); err != nil {
			res.Skipped++
			continue
		}
		res.SentTo++
	}
	return res
}
