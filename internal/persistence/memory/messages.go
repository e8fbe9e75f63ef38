package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/goevery/rendezvous/internal/chat"
	"github.com/goevery/rendezvous/internal/persistence"
)

// MessageStore keeps messages in insertion order. Senders commit under
// separate locks, so readers sort by sentAt instead of relying on it.
type MessageStore struct {
	mu       sync.RWMutex
	messages []chat.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

func (s *MessageStore) Setup(ctx context.Context) error {
	return nil
}

func (s *MessageStore) Save(ctx context.Context, message chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.messages {
		if m.Id == message.Id {
			return persistence.ErrAlreadyExists
		}
	}

	s.messages = append(s.messages, message)

	return nil
}

func (s *MessageStore) Thread(ctx context.Context, a string, b string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	thread := []chat.Message{}
	for _, m := range s.messages {
		if (m.SenderUsername == a && m.RecipientUsername == b) ||
			(m.SenderUsername == b && m.RecipientUsername == a) {
			thread = append(thread, m)
		}
	}

	slices.SortStableFunc(thread, compareSentAt)

	return thread, nil
}

func (s *MessageStore) Get(ctx context.Context, id string) (chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(id)
	if i < 0 {
		return chat.Message{}, persistence.ErrNotFound
	}

	return s.messages[i], nil
}

func (s *MessageStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return persistence.ErrNotFound
	}

	s.messages = slices.Delete(s.messages, i, i+1)

	return nil
}

// IMPORTANT: It must be called only when a lock is already held.
func (s *MessageStore) indexLocked(id string) int {
	return slices.IndexFunc(s.messages, func(m chat.Message) bool {
		return m.Id == id
	})
}

func (s *MessageStore) MarkThreadRead(ctx context.Context, recipient string, sender string, readAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated int
	for i, m := range s.messages {
		if m.RecipientUsername == recipient && m.SenderUsername == sender && m.ReadAt == nil {
			at := readAt
			s.messages[i].ReadAt = &at
			updated++
		}
	}

	return updated, nil
}

func (s *MessageStore) List(ctx context.Context, request persistence.ListRequest) (persistence.Page, error) {
	s.mu.RLock()

	var matching []chat.Message
	for _, m := range s.messages {
		if request.Matches(m) {
			matching = append(matching, m)
		}
	}

	s.mu.RUnlock()

	slices.SortStableFunc(matching, func(a, b chat.Message) int {
		return compareSentAt(b, a)
	})

	total := len(matching)
	start := max(0, min(request.Skip(), total))
	end := min(start+request.PageSize, total)

	return persistence.NewPage(request, matching[start:end], total), nil
}

// compareSentAt orders by sentAt only; with a stable sort, messages sharing a
// timestamp stay in commit order.
func compareSentAt(a, b chat.Message) int {
	return a.SentAt.Compare(b.SentAt)
}
