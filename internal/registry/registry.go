package registry

import (
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Tracker is the process-wide presence map: username -> open connection ids.
// It only reflects connections open on this process and is never persisted.
type Tracker struct {
	logger *zap.Logger
	mu     sync.RWMutex

	connectionsByUser map[string]map[string]struct{}
	userByConnection  map[string]string
}

func NewTracker(logger *zap.Logger) *Tracker {
	return &Tracker{
		logger:            logger,
		connectionsByUser: make(map[string]map[string]struct{}),
		userByConnection:  make(map[string]string),
	}
}

// AddConnection registers connectionId under username and reports whether
// this is the user's first open connection.
func (t *Tracker) AddConnection(username string, connectionId string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if owner, ok := t.userByConnection[connectionId]; ok {
		if owner == username {
			return false
		}

		t.logger.Warn("connection registered under another user, moving it",
			zap.String("connectionId", connectionId),
			zap.String("previousUsername", owner),
			zap.String("username", username))

		t.removeLocked(owner, connectionId)
	}

	connections, ok := t.connectionsByUser[username]
	if !ok {
		connections = make(map[string]struct{})
		t.connectionsByUser[username] = connections
	}

	connections[connectionId] = struct{}{}
	t.userByConnection[connectionId] = username

	return !ok
}

// RemoveConnection is a no-op when the pair is absent. It reports whether the
// user has no connections left.
func (t *Tracker) RemoveConnection(username string, connectionId string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.removeLocked(username, connectionId)
}

// IMPORTANT: It must be called only when a write lock is already held.
func (t *Tracker) removeLocked(username string, connectionId string) bool {
	connections, ok := t.connectionsByUser[username]
	if !ok {
		return false
	}

	if _, ok := connections[connectionId]; !ok {
		return false
	}

	delete(connections, connectionId)
	delete(t.userByConnection, connectionId)

	if len(connections) == 0 {
		delete(t.connectionsByUser, username)

		return true
	}

	return false
}

func (t *Tracker) GetConnectionsForUser(username string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	connections := t.connectionsByUser[username]

	ids := make([]string, 0, len(connections))
	for id := range connections {
		ids = append(ids, id)
	}

	return ids
}

func (t *Tracker) IsOnline(username string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.connectionsByUser[username]

	return ok
}

func (t *Tracker) OnlineUsers() []string {
	t.mu.RLock()

	usernames := make([]string, 0, len(t.connectionsByUser))
	for username := range t.connectionsByUser {
		usernames = append(usernames, username)
	}

	t.mu.RUnlock()

	slices.Sort(usernames)

	return usernames
}
