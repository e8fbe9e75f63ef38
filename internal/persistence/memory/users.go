package memory

import (
	"context"
	"sync"

	"github.com/goevery/rendezvous/internal/chat"
	"github.com/goevery/rendezvous/internal/persistence"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[string]chat.User
}

func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[string]chat.User),
	}
}

func (s *UserStore) Setup(ctx context.Context) error {
	return nil
}

func (s *UserStore) Create(ctx context.Context, user chat.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username]; ok {
		return persistence.ErrAlreadyExists
	}

	s.users[user.Username] = user

	return nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (chat.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return chat.User{}, persistence.ErrNotFound
	}

	return user, nil
}
