package messaging

import (
	"sync"

	"github.com/goevery/rendezvous/internal/chat"
)

type SessionState int

const (
	SessionOpening SessionState = iota
	SessionJoined
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionOpening:
		return "opening"
	case SessionJoined:
		return "joined"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one connection viewing the conversation with PartnerUsername.
type Session struct {
	Connection      chat.Connection
	DisplayName     string
	PartnerUsername string
	GroupName       string

	mu    sync.Mutex
	state SessionState
}

func newSession(connection chat.Connection, displayName string, partnerUsername string) *Session {
	return &Session{
		Connection:      connection,
		DisplayName:     displayName,
		PartnerUsername: partnerUsername,
		GroupName:       chat.GroupName(connection.Username, partnerUsername),
		state:           SessionOpening,
	}
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Session) transition(from SessionState, to SessionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != from {
		return false
	}

	s.state = to

	return true
}
