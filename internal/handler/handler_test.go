package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goevery/rendezvous/internal/auth"
	"github.com/goevery/rendezvous/internal/chat"
	"github.com/goevery/rendezvous/internal/ierr"
	"github.com/goevery/rendezvous/internal/persistence"
	"github.com/goevery/rendezvous/internal/persistence/memory"
	"github.com/goevery/rendezvous/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	authenticator := auth.NewAuthenticator("test-secret", time.Hour)

	register := NewRegisterHandler(zap.NewNop(), users)
	login := NewLoginHandler(users, authenticator)

	registered, err := register.Handle(ctx, RegisterRequest{
		Username:    "Alice",
		DisplayName: "Alice Liddell",
		Password:    "wonderland",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", registered.Username)

	stored, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "wonderland", stored.PasswordHash)

	_, err = register.Handle(ctx, RegisterRequest{
		Username:    "alice",
		DisplayName: "Another Alice",
		Password:    "wonderland",
	})
	assert.Equal(t, ierr.ErrorCodeAlreadyExists, ierr.CodeOf(err))

	response, err := login.Handle(ctx, LoginRequest{Username: "ALICE", Password: "wonderland"})
	require.NoError(t, err)
	assert.Equal(t, "alice", response.Username)
	assert.Equal(t, "Alice Liddell", response.DisplayName)

	authentication, err := authenticator.AuthenticateJWT(response.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", authentication.Subject)
	assert.Equal(t, "Alice Liddell", authentication.DisplayName)

	_, err = login.Handle(ctx, LoginRequest{Username: "alice", Password: "looking-glass"})
	assert.Equal(t, ierr.ErrorCodeUnauthenticated, ierr.CodeOf(err))

	_, err = login.Handle(ctx, LoginRequest{Username: "ghost", Password: "wonderland"})
	assert.Equal(t, ierr.ErrorCodeUnauthenticated, ierr.CodeOf(err))
}

func TestRegisterHandler_Validation(t *testing.T) {
	register := NewRegisterHandler(zap.NewNop(), memory.NewUserStore())

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"short username", RegisterRequest{"al", "Al", "wonderland"}},
		{"username with symbols", RegisterRequest{"alice-1", "Alice", "wonderland"}},
		{"missing display name", RegisterRequest{"alice", "", "wonderland"}},
		{"short password", RegisterRequest{"alice", "Alice", "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := register.Handle(context.Background(), tt.req)

			assert.Equal(t, ierr.ErrorCodeInvalidArgument, ierr.CodeOf(err))
		})
	}
}

func TestListMessagesHandler(t *testing.T) {
	ctx := context.Background()
	messages := memory.NewMessageStore()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, m := range []chat.Message{
		{Id: "m1", SenderUsername: "bob", RecipientUsername: "alice", Content: "one"},
		{Id: "m2", SenderUsername: "bob", RecipientUsername: "alice", Content: "two"},
		{Id: "m3", SenderUsername: "alice", RecipientUsername: "bob", Content: "three"},
	} {
		m.SentAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, messages.Save(ctx, m))
	}

	handler := NewListMessagesHandler(messages)

	page, err := handler.Handle(ctx, ListMessagesRequest{Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, defaultPageSize, page.PageSize)
	assert.Equal(t, 2, page.TotalCount)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "m2", page.Messages[0].Id)

	page, err = handler.Handle(ctx, ListMessagesRequest{Username: "alice", Container: "outbox"})
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "m3", page.Messages[0].Id)

	_, err = handler.Handle(ctx, ListMessagesRequest{Username: "alice", Container: "trash"})
	assert.Equal(t, ierr.ErrorCodeInvalidArgument, ierr.CodeOf(err))

	_, err = handler.Handle(ctx, ListMessagesRequest{Username: "alice", PageSize: 1000})
	assert.Equal(t, ierr.ErrorCodeInvalidArgument, ierr.CodeOf(err))
}

func TestGetMessageHandler(t *testing.T) {
	ctx := context.Background()
	messages := memory.NewMessageStore()

	message := chat.Message{
		Id:                "m1",
		SenderUsername:    "bob",
		RecipientUsername: "alice",
		Content:           "hello",
		SentAt:            time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, messages.Save(ctx, message))

	handler := NewGetMessageHandler(messages)

	for _, username := range []string{"alice", "bob"} {
		got, err := handler.Handle(ctx, MessageRequest{Username: username, Id: "m1"})
		require.NoError(t, err)
		assert.Equal(t, message, got)
	}

	_, err := handler.Handle(ctx, MessageRequest{Username: "carol", Id: "m1"})
	assert.Equal(t, ierr.ErrorCodePermissionDenied, ierr.CodeOf(err))

	_, err = handler.Handle(ctx, MessageRequest{Username: "alice", Id: "missing"})
	assert.Equal(t, ierr.ErrorCodeNotFound, ierr.CodeOf(err))

	_, err = handler.Handle(ctx, MessageRequest{Username: "alice"})
	assert.Equal(t, ierr.ErrorCodeInvalidArgument, ierr.CodeOf(err))
}

func TestDeleteMessageHandler(t *testing.T) {
	ctx := context.Background()
	messages := memory.NewMessageStore()

	require.NoError(t, messages.Save(ctx, chat.Message{
		Id:                "m1",
		SenderUsername:    "bob",
		RecipientUsername: "alice",
		Content:           "hello",
		SentAt:            time.Now().UTC().Truncate(time.Millisecond),
	}))

	handler := NewDeleteMessageHandler(zap.NewNop(), messages)

	err := handler.Handle(ctx, MessageRequest{Username: "carol", Id: "m1"})
	assert.Equal(t, ierr.ErrorCodePermissionDenied, ierr.CodeOf(err))

	_, err = messages.Get(ctx, "m1")
	require.NoError(t, err)

	err = handler.Handle(ctx, MessageRequest{Username: "alice", Id: "m1"})
	require.NoError(t, err)

	_, err = messages.Get(ctx, "m1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	err = handler.Handle(ctx, MessageRequest{Username: "alice", Id: "m1"})
	assert.Equal(t, ierr.ErrorCodeNotFound, ierr.CodeOf(err))
}

func TestDeleteMessageHandler_StoreFailure(t *testing.T) {
	ctx := context.Background()
	messages := persistence.NewMockMessageStore(t)

	messages.On("Get", ctx, "m1").
		Return(chat.Message{Id: "m1", SenderUsername: "alice", RecipientUsername: "bob"}, nil)
	messages.On("Delete", ctx, "m1").
		Return(errors.New("connection reset"))

	err := NewDeleteMessageHandler(zap.NewNop(), messages).
		Handle(ctx, MessageRequest{Username: "alice", Id: "m1"})

	require.Error(t, err)
	assert.Equal(t, ierr.ErrorCodeInternal, ierr.CodeOf(err))
}

func TestPresenceHandler(t *testing.T) {
	presence := registry.NewTracker(zap.NewNop())
	handler := NewPresenceHandler(presence)

	assert.Equal(t, []string{}, handler.Handle().Usernames)

	presence.AddConnection("bob", "c1")
	presence.AddConnection("alice", "c2")

	assert.Equal(t, []string{"alice", "bob"}, handler.Handle().Usernames)
}
