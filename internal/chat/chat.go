package chat

import (
	"errors"
	"strings"
	"time"
)

const groupNameSeparator = "-"

var (
	ErrSelfMessage       = errors.New("you cannot send a message to yourself")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrGroupJoin         = errors.New("failed to join group")
	ErrGroupLeave        = errors.New("failed to remove from group")
	ErrPersistence       = errors.New("failed to persist message")
)

// Connection is one live real-time session owned by a user.
type Connection struct {
	ConnectionId string `json:"connectionId" bson:"connectionId"`
	Username     string `json:"username" bson:"username"`
}

// Group is the durable conversation thread between two users. Connections
// lists the sessions currently viewing the conversation.
type Group struct {
	Name        string       `json:"name"`
	Connections []Connection `json:"connections"`
}

func (g Group) HasMember(username string) bool {
	for _, c := range g.Connections {
		if c.Username == username {
			return true
		}
	}

	return false
}

func (g Group) ConnectionIds() []string {
	ids := make([]string, 0, len(g.Connections))
	for _, c := range g.Connections {
		ids = append(ids, c.ConnectionId)
	}

	return ids
}

type Message struct {
	Id                   string     `json:"id"`
	SenderUsername       string     `json:"senderUsername"`
	SenderDisplayName    string     `json:"senderDisplayName"`
	RecipientUsername    string     `json:"recipientUsername"`
	RecipientDisplayName string     `json:"recipientDisplayName"`
	Content              string     `json:"content"`
	SentAt               time.Time  `json:"sentAt"`
	ReadAt               *time.Time `json:"readAt,omitempty"`
}

func (m Message) IsRead() bool {
	return m.ReadAt != nil
}

type User struct {
	Username     string    `json:"username"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewMessageAlert tells an online user that a message arrived in a
// conversation they are not viewing. It never carries the content.
type NewMessageAlert struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// GroupName returns the same name for (a, b) and (b, a).
func GroupName(a, b string) string {
	if strings.Compare(a, b) < 0 {
		return a + groupNameSeparator + b
	}

	return b + groupNameSeparator + a
}
