package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/goevery/rendezvous/internal/chat"
	"github.com/goevery/rendezvous/internal/persistence"
)

type GroupStore struct {
	mu     sync.RWMutex
	groups map[string]*chat.Group
}

func NewGroupStore() *GroupStore {
	return &GroupStore{
		groups: make(map[string]*chat.Group),
	}
}

func (s *GroupStore) Setup(ctx context.Context) error {
	return nil
}

func (s *GroupStore) GetGroup(ctx context.Context, name string) (chat.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	group, ok := s.groups[name]
	if !ok {
		return chat.Group{}, persistence.ErrNotFound
	}

	return clone(group), nil
}

func (s *GroupStore) GetGroupForConnection(ctx context.Context, connectionId string) (chat.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	group, _, ok := s.findLocked(connectionId)
	if !ok {
		return chat.Group{}, persistence.ErrNotFound
	}

	return clone(group), nil
}

func (s *GroupStore) InsertGroup(ctx context.Context, name string) (chat.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[name]; ok {
		return chat.Group{}, persistence.ErrAlreadyExists
	}

	group := &chat.Group{Name: name, Connections: []chat.Connection{}}
	s.groups[name] = group

	return clone(group), nil
}

func (s *GroupStore) AddConnection(ctx context.Context, name string, connection chat.Connection) (chat.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[name]
	if !ok {
		return chat.Group{}, persistence.ErrNotFound
	}

	if !slices.Contains(group.Connections, connection) {
		group.Connections = append(group.Connections, connection)
	}

	return clone(group), nil
}

func (s *GroupStore) RemoveConnection(ctx context.Context, connectionId string) (chat.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, index, ok := s.findLocked(connectionId)
	if !ok {
		return chat.Group{}, persistence.ErrNotFound
	}

	group.Connections = slices.Delete(group.Connections, index, index+1)

	return clone(group), nil
}

func (s *GroupStore) ClearConnections(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cleared int
	for _, group := range s.groups {
		if len(group.Connections) > 0 {
			group.Connections = []chat.Connection{}
			cleared++
		}
	}

	return cleared, nil
}

// IMPORTANT: It must be called only when a lock is already held.
func (s *GroupStore) findLocked(connectionId string) (*chat.Group, int, bool) {
	for _, group := range s.groups {
		for i, c := range group.Connections {
			if c.ConnectionId == connectionId {
				return group, i, true
			}
		}
	}

	return nil, 0, false
}

func clone(group *chat.Group) chat.Group {
	return chat.Group{
		Name:        group.Name,
		Connections: slices.Clone(group.Connections),
	}
}
