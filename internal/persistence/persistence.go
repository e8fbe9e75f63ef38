package persistence

//go:generate mockery --name "GroupStore|MessageStore" --inpackage --with-expecter=false --case underscore

import (
	"context"
	"errors"
	"time"

	"github.com/goevery/rendezvous/internal/chat"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

type UserStore interface {
	Setup(ctx context.Context) error
	Create(ctx context.Context, user chat.User) error
	GetByUsername(ctx context.Context, username string) (chat.User, error)
}

// GroupStore persists conversation groups. Every mutation is a single atomic
// write: it either fully applies or leaves the group untouched.
type GroupStore interface {
	Setup(ctx context.Context) error
	GetGroup(ctx context.Context, name string) (chat.Group, error)
	GetGroupForConnection(ctx context.Context, connectionId string) (chat.Group, error)
	// InsertGroup fails with ErrAlreadyExists when the name is taken.
	InsertGroup(ctx context.Context, name string) (chat.Group, error)
	AddConnection(ctx context.Context, name string, connection chat.Connection) (chat.Group, error)
	// RemoveConnection returns the group as it stands after the removal.
	RemoveConnection(ctx context.Context, connectionId string) (chat.Group, error)
	// ClearConnections empties every group and returns how many were changed.
	ClearConnections(ctx context.Context) (int, error)
}

type MessageStore interface {
	Setup(ctx context.Context) error
	Save(ctx context.Context, message chat.Message) error
	Get(ctx context.Context, id string) (chat.Message, error)
	Delete(ctx context.Context, id string) error
	// Thread returns the messages exchanged between a and b, oldest first.
	Thread(ctx context.Context, a string, b string) ([]chat.Message, error)
	// MarkThreadRead sets readAt on unread messages from sender to recipient.
	MarkThreadRead(ctx context.Context, recipient string, sender string, readAt time.Time) (int, error)
	List(ctx context.Context, request ListRequest) (Page, error)
}

type Container string

const (
	ContainerInbox  Container = "inbox"
	ContainerOutbox Container = "outbox"
	ContainerUnread Container = "unread"
)

type ListRequest struct {
	Username  string
	Container Container
	Page      int
	PageSize  int
}

// Matches reports whether message belongs to the requested container.
func (r ListRequest) Matches(message chat.Message) bool {
	switch r.Container {
	case ContainerOutbox:
		return message.SenderUsername == r.Username
	case ContainerUnread:
		return message.RecipientUsername == r.Username && message.ReadAt == nil
	default:
		return message.RecipientUsername == r.Username
	}
}

func (r ListRequest) Skip() int {
	return (r.Page - 1) * r.PageSize
}

type Page struct {
	Messages   []chat.Message `json:"messages"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalCount int            `json:"totalCount"`
	TotalPages int            `json:"totalPages"`
}

func NewPage(request ListRequest, messages []chat.Message, totalCount int) Page {
	totalPages := 0
	if request.PageSize > 0 {
		totalPages = (totalCount + request.PageSize - 1) / request.PageSize
	}

	if messages == nil {
		messages = []chat.Message{}
	}

	return Page{
		Messages:   messages,
		Page:       request.Page,
		PageSize:   request.PageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}
