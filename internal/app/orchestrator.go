package app

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
)

// Orchestrator owns the combined connection/identity/room state behind
// a single exclusive guard. Every inbound event, the liveness sweep and
// disconnect cleanup run whole operations, mutations plus their
// resulting broadcasts, under o.mu, so event processing is serialized
// relative to any room it touches.
//
// Broadcast sends never block (TrySend on a buffered channel), which
// keeps slow consumers out of the critical section.
type Orchestrator struct {
	mu       sync.Mutex
	reg      *Registry
	rooms    map[domain.RoomName]*core.Room
	serverID string
	histCap  int
}

func NewOrchestrator(historyCap int) *Orchestrator {
	return &Orchestrator{
		reg:      NewRegistry(),
		rooms:    make(map[domain.RoomName]*core.Room),
		serverID: uuid.NewString(),
		histCap:  historyCap,
	}
}

// Connect registers a fresh connection and greets it with the server
// instance id and the identity requirement.
func (o *Orchestrator) Connect(sid core.SessionID, conn core.SignalConnection) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.reg.Register(sid, conn)
	o.send(s.Conn, core.ServerInfoEvent{Type: core.TypeServerInfo, SessionID: o.serverID})
	o.send(s.Conn, core.RequireIdentityEvent{Type: core.TypeRequireIdentity})
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Int("sessions", o.reg.Len()).Msg("connected")
}

// Identify claims a display name. Empty-after-trim names are ignored
// without a reply. A clash with another identified session answers
// identify_error{NAME_TAKEN}; an over-long name NAME_INVALID.
func (o *Orchestrator) Identify(sid core.SessionID, rawName string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.reg.Lookup(sid)
	if !ok {
		return
	}
	name := strings.TrimSpace(rawName)
	if name == "" {
		return
	}
	user, err := o.reg.Identify(sid, name)
	switch {
	case errors.Is(err, ErrNameTaken):
		log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("name", name).Msg("name taken")
		o.send(s.Conn, core.IdentifyErrorEvent{Type: core.TypeIdentifyError, Code: core.CodeNameTaken})
	case err != nil:
		o.send(s.Conn, core.IdentifyErrorEvent{Type: core.TypeIdentifyError, Code: core.CodeNameInvalid})
	default:
		log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("name", user.Username).Msg("identified")
		o.send(s.Conn, core.IdentityEvent{Type: core.TypeIdentity, Name: user.Username, UserID: user.ID})
	}
}

// Join moves the connection into a room, leaving its previous one in
// the same step. Joining the current room again is a no-op.
func (o *Orchestrator) Join(sid core.SessionID, rawRoom string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.reg.Lookup(sid)
	if !ok {
		return
	}
	if s.User == nil {
		o.send(s.Conn, core.ErrorEvent{Type: core.TypeError, Code: core.CodeNotIdentified})
		return
	}
	name := domain.RoomName(strings.TrimSpace(rawRoom))
	if name == "" {
		name = domain.DefaultRoom
	}
	if s.Room == name {
		return
	}
	if s.Room != "" {
		o.removeFromRoom(sid, s)
	}
	room := o.roomFor(name)
	room.AddMember(sid, s.Conn)
	s.Room = name
	s.State = stateJoined
	o.broadcast(room, core.RoomStateEvent{Type: core.TypeRoomState, Room: name, MemberCount: room.MemberCount()})
	o.broadcast(room, core.NewSystemEvent(s.displayName()+" joined", name))
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(name)).Msg("joined")
}

// Chat relays a line to the sender's current room (the default room if
// it never joined), records it in the room history, and fans it out to
// all members including the sender. Zero-length text is dropped.
func (o *Orchestrator) Chat(sid core.SessionID, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.reg.Lookup(sid)
	if !ok {
		return
	}
	if s.User == nil {
		o.send(s.Conn, core.ErrorEvent{Type: core.TypeError, Code: core.CodeNotIdentified})
		return
	}
	if len(text) == 0 {
		return
	}
	roomName := s.Room
	if roomName == "" {
		roomName = domain.DefaultRoom
	}
	room := o.roomFor(roomName)
	msg := domain.NewMessage(text, s.User, roomName)
	room.History.Append(msg)
	res := o.broadcast(room, core.ChatEvent{Type: core.TypeChat, Message: msg})
	log.Debug().Str("module", "app.orchestrator").Str("room", string(roomName)).Int("sent_to", res.SentTo).Int("skipped", res.Skipped).Msg("chat relayed")
}

// WhoAmI answers with the session's current name and room.
func (o *Orchestrator) WhoAmI(sid core.SessionID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.reg.Lookup(sid)
	if !ok {
		return
	}
	resp := core.WhoAmIEvent{Type: core.TypeWhoAmI, Room: s.Room}
	if s.User != nil {
		resp.Name = s.User.Username
	}
	o.send(s.Conn, resp)
}

// Disconnect runs full close cleanup: leave the room with a notice,
// release the name, drop the session. Safe to call more than once.
func (o *Orchestrator) Disconnect(sid core.SessionID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cleanup(sid)
}

// MarkAlive records a heartbeat acknowledgment.
func (o *Orchestrator) MarkAlive(sid core.SessionID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.reg.Lookup(sid); ok {
		s.Alive = true
	}
}

// Sweep is one liveness pass: terminate every connection that did not
// answer the previous probe, then re-arm the flag and probe the rest.
// A failure on one connection never aborts the others.
func (o *Orchestrator) Sweep() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for sid, s := range o.reg.sessions {
		if !s.Alive {
			log.Warn().Str("module", "app.orchestrator").Str("sid", string(sid)).Msg("unresponsive, terminating")
			s.Conn.Close()
			o.cleanup(sid)
			continue
		}
		s.Alive = false
		if err := s.Conn.Ping(); err != nil {
			// Flag stays cleared; the next pass reaps it.
			log.Debug().Err(err).Str("module", "app.orchestrator").Str("sid", string(sid)).Msg("ping failed")
		}
	}
}

// Rooms lists every known room with its member count.
func (o *Orchestrator) Rooms() []core.RoomInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]core.RoomInfo, 0, len(o.rooms))
	for name, r := range o.rooms {
		out = append(out, core.RoomInfo{Name: string(name), MemberCount: r.MemberCount()})
	}
	return out
}

// MemberCount reports a room's member set size, 0 for unknown rooms.
func (o *Orchestrator) MemberCount(name domain.RoomName) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if r, ok := o.rooms[name]; ok {
		return r.MemberCount()
	}
	return 0
}

// cleanup is the shared close path for client disconnects and sweep
// terminations. Caller holds o.mu.
func (o *Orchestrator) cleanup(sid core.SessionID) {
	s, ok := o.reg.Lookup(sid)
	if !ok {
		return
	}
	if s.Room != "" {
		name := s.displayName()
		roomName := s.Room
		o.removeFromRoom(sid, s)
		if room, ok := o.rooms[roomName]; ok {
			o.broadcast(room, core.NewSystemEvent(name+" left", roomName))
		}
	}
	o.reg.Forget(sid)
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Msg("session removed")
}

// removeFromRoom drops the membership, tells the remaining members the
// new count, and tears down the default room's history when it empties.
// Non-default rooms keep their history while empty. Caller holds o.mu.
func (o *Orchestrator) removeFromRoom(sid core.SessionID, s *session) {
	room, ok := o.rooms[s.Room]
	if !ok {
		s.Room = ""
		return
	}
	room.RemoveMember(sid)
	o.broadcast(room, core.RoomStateEvent{Type: core.TypeRoomState, Room: room.Name, MemberCount: room.MemberCount()})
	if room.MemberCount() == 0 && room.Name == domain.DefaultRoom {
		room.History.Reset()
	}
	s.Room = ""
	if s.State == stateJoined {
		s.State = stateIdentified
	}
}

func (o *Orchestrator) roomFor(name domain.RoomName) *core.Room {
	room, ok := o.rooms[name]
	if !ok {
		room = core.NewRoom(name, o.histCap)
		o.rooms[name] = room
		log.Info().Str("module", "app.orchestrator").Str("room", string(name)).Msg("room created")
	}
	return room
}

func (o *Orchestrator) send(conn core.SignalConnection, v any) {
	f, err := core.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").Msg("encode event")
		return
	}
	if !conn.IsOpen() {
		return
	}
	if err := conn.TrySend(f); err != nil {
		log.Debug().Err(err).Str("module", "app.orchestrator").Msg("send dropped")
	}
}

func (o *Orchestrator) broadcast(room *core.Room, v any) core.PublishResult {
	f, err := core.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").Msg("encode broadcast")
		return core.PublishResult{}
	}
	return room.Broadcast(f)
}
