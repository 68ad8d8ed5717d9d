package app

import (
	"errors"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
)

var ErrNameTaken = errors.New("name taken")

// connState is the per-connection lifecycle:
// connected (unidentified) -> identified (no room) -> joined.
type connState int

const (
	stateConnected connState = iota
	stateIdentified
	stateJoined
)

// session is everything the core tracks per live connection.
type session struct {
	Conn  core.SignalConnection
	State connState
	User  *domain.User    // nil until identified
	Room  domain.RoomName // empty until joined
	Alive bool            // cleared by the sweep, set back by a pong
}

func (s *session) displayName() string {
	if s.User != nil {
		return s.User.Username
	}
	return "someone"
}

// Registry maps connection handles to sessions and claimed names.
// Not self-locking: the orchestrator mutex guards every call.
type Registry struct {
	sessions map[core.SessionID]*session
	names    map[string]core.SessionID // folded name -> holder
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*session),
		names:    make(map[string]core.SessionID),
	}
}

func (r *Registry) Register(sid core.SessionID, conn core.SignalConnection) *session {
	s := &session{Conn: conn, State: stateConnected, Alive: true}
	r.sessions[sid] = s
	return s
}

func (r *Registry) Lookup(sid core.SessionID) (*session, bool) {
	s, ok := r.sessions[sid]
	return s, ok
}

// Identify claims a display name for sid. The name must already be
// trimmed and non-empty. A re-identification releases the old name and
// issues a fresh user id.
func (r *Registry) Identify(sid core.SessionID, name string) (*domain.User, error) {
	s, ok := r.sessions[sid]
	if !ok {
		return nil, errors.New("unknown session")
	}
	fold := domain.FoldUsername(name)
	if holder, taken := r.names[fold]; taken && holder != sid {
		return nil, ErrNameTaken
	}
	user, err := domain.NewUser(name)
	if err != nil {
		return nil, err
	}
	if s.User != nil {
		delete(r.names, domain.FoldUsername(s.User.Username))
	}
	r.names[fold] = sid
	s.User = user
	if s.State == stateConnected {
		s.State = stateIdentified
	}
	return user, nil
}

func (r *Registry) IsIdentified(sid core.SessionID) bool {
	s, ok := r.sessions[sid]
	return ok && s.User != nil
}

// Forget drops the session and releases its name. Called on disconnect.
func (r *Registry) Forget(sid core.SessionID) {
	if s, ok := r.sessions[sid]; ok && s.User != nil {
		delete(r.names, domain.FoldUsername(s.User.Username))
	}
	delete(r.sessions, sid)
}

func (r *Registry) Len() int { return len(r.sessions) }
