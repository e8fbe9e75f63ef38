package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goevery/rendezvous/internal/chat"
	"github.com/goevery/rendezvous/internal/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStore(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()

	user := chat.User{Username: "alice", DisplayName: "Alice", CreatedAt: time.Now()}
	require.NoError(t, store.Create(ctx, user))
	assert.ErrorIs(t, store.Create(ctx, user), persistence.ErrAlreadyExists)

	found, err := store.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user, found)

	_, err = store.GetByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestGroupStore(t *testing.T) {
	ctx := context.Background()
	store := NewGroupStore()

	_, err := store.GetGroup(ctx, "alice-bob")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	_, err = store.AddConnection(ctx, "alice-bob", chat.Connection{ConnectionId: "c1", Username: "alice"})
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	group, err := store.InsertGroup(ctx, "alice-bob")
	require.NoError(t, err)
	assert.Equal(t, "alice-bob", group.Name)
	assert.Empty(t, group.Connections)

	_, err = store.InsertGroup(ctx, "alice-bob")
	assert.ErrorIs(t, err, persistence.ErrAlreadyExists)

	alice := chat.Connection{ConnectionId: "c1", Username: "alice"}
	bob := chat.Connection{ConnectionId: "c2", Username: "bob"}

	_, err = store.AddConnection(ctx, "alice-bob", alice)
	require.NoError(t, err)
	group, err = store.AddConnection(ctx, "alice-bob", bob)
	require.NoError(t, err)
	assert.Equal(t, []chat.Connection{alice, bob}, group.Connections)

	group, err = store.AddConnection(ctx, "alice-bob", bob)
	require.NoError(t, err)
	assert.Len(t, group.Connections, 2)

	group, err = store.GetGroupForConnection(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, "alice-bob", group.Name)

	group, err = store.RemoveConnection(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []chat.Connection{bob}, group.Connections)

	_, err = store.RemoveConnection(ctx, "c1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	_, err = store.GetGroupForConnection(ctx, "c1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	_, err = store.InsertGroup(ctx, "alice-carol")
	require.NoError(t, err)

	cleared, err := store.ClearConnections(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	group, err = store.GetGroup(ctx, "alice-bob")
	require.NoError(t, err)
	assert.Empty(t, group.Connections)
}

func TestGroupStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewGroupStore()

	_, err := store.InsertGroup(ctx, "alice-bob")
	require.NoError(t, err)
	group, err := store.AddConnection(ctx, "alice-bob", chat.Connection{ConnectionId: "c1", Username: "alice"})
	require.NoError(t, err)

	group.Connections[0].Username = "mallory"

	stored, err := store.GetGroup(ctx, "alice-bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.Connections[0].Username)
}

func TestMessageStore_Thread(t *testing.T) {
	ctx := context.Background()
	store := NewMessageStore()
	base := time.Now()

	save := func(id, from, to string, offset time.Duration) {
		require.NoError(t, store.Save(ctx, chat.Message{
			Id:                id,
			SenderUsername:    from,
			RecipientUsername: to,
			Content:           id,
			SentAt:            base.Add(offset),
		}))
	}

	save("m1", "alice", "bob", 0)
	save("m2", "bob", "alice", time.Second)
	save("m3", "alice", "carol", 2*time.Second)
	save("m4", "alice", "bob", 3*time.Second)

	assert.ErrorIs(t, store.Save(ctx, chat.Message{Id: "m1"}), persistence.ErrAlreadyExists)

	thread, err := store.Thread(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Equal(t, "m1", thread[0].Id)
	assert.Equal(t, "m2", thread[1].Id)
	assert.Equal(t, "m4", thread[2].Id)

	readAt := base.Add(time.Minute)
	updated, err := store.MarkThreadRead(ctx, "bob", "alice", readAt)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	updated, err = store.MarkThreadRead(ctx, "bob", "alice", readAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, updated)

	thread, err = store.Thread(ctx, "alice", "bob")
	require.NoError(t, err)
	require.NotNil(t, thread[0].ReadAt)
	assert.Equal(t, readAt, *thread[0].ReadAt)
	assert.Nil(t, thread[1].ReadAt)
	assert.Equal(t, readAt, *thread[2].ReadAt)

	empty, err := store.Thread(ctx, "dave", "erin")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMessageStore_ThreadSortsBySentAt(t *testing.T) {
	ctx := context.Background()
	store := NewMessageStore()
	base := time.Now().UTC().Truncate(time.Millisecond)

	// bob's send committed first although alice's was stamped earlier
	require.NoError(t, store.Save(ctx, chat.Message{
		Id: "2", SenderUsername: "bob", RecipientUsername: "alice", SentAt: base.Add(time.Millisecond),
	}))
	require.NoError(t, store.Save(ctx, chat.Message{
		Id: "1", SenderUsername: "alice", RecipientUsername: "bob", SentAt: base,
	}))
	require.NoError(t, store.Save(ctx, chat.Message{
		Id: "0", SenderUsername: "bob", RecipientUsername: "alice", SentAt: base.Add(time.Millisecond),
	}))

	thread, err := store.Thread(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Equal(t, "1", thread[0].Id)
	assert.Equal(t, "2", thread[1].Id)
	assert.Equal(t, "0", thread[2].Id)

	page, err := store.List(ctx, persistence.ListRequest{
		Username: "alice", Container: persistence.ContainerInbox, Page: 1, PageSize: 10,
	})
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, base.Add(time.Millisecond), page.Messages[0].SentAt)
}

func TestMessageStore_GetAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMessageStore()

	message := chat.Message{
		Id:                "m1",
		SenderUsername:    "alice",
		RecipientUsername: "bob",
		Content:           "hello",
		SentAt:            time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, store.Save(ctx, message))

	stored, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, message, stored)

	require.NoError(t, store.Delete(ctx, "m1"))

	_, err = store.Get(ctx, "m1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "m1"), persistence.ErrNotFound)

	thread, err := store.Thread(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Empty(t, thread)
}

func TestMessageStore_List(t *testing.T) {
	ctx := context.Background()
	store := NewMessageStore()
	base := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(ctx, chat.Message{
			Id:                fmt.Sprintf("in%d", i),
			SenderUsername:    "bob",
			RecipientUsername: "alice",
			SentAt:            base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, store.Save(ctx, chat.Message{
		Id:                "out0",
		SenderUsername:    "alice",
		RecipientUsername: "bob",
		SentAt:            base.Add(10 * time.Second),
	}))
	_, err := store.MarkThreadRead(ctx, "alice", "bob", base)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, chat.Message{
		Id:                "in5",
		SenderUsername:    "bob",
		RecipientUsername: "alice",
		SentAt:            base.Add(11 * time.Second),
	}))

	t.Run("inbox is paged newest first", func(t *testing.T) {
		page, err := store.List(ctx, persistence.ListRequest{
			Username: "alice", Container: persistence.ContainerInbox, Page: 1, PageSize: 4,
		})
		require.NoError(t, err)
		assert.Equal(t, 6, page.TotalCount)
		assert.Equal(t, 2, page.TotalPages)
		require.Len(t, page.Messages, 4)
		assert.Equal(t, "in5", page.Messages[0].Id)

		page, err = store.List(ctx, persistence.ListRequest{
			Username: "alice", Container: persistence.ContainerInbox, Page: 2, PageSize: 4,
		})
		require.NoError(t, err)
		require.Len(t, page.Messages, 2)
		assert.Equal(t, "in0", page.Messages[1].Id)
	})

	t.Run("outbox", func(t *testing.T) {
		page, err := store.List(ctx, persistence.ListRequest{
			Username: "alice", Container: persistence.ContainerOutbox, Page: 1, PageSize: 10,
		})
		require.NoError(t, err)
		require.Len(t, page.Messages, 1)
		assert.Equal(t, "out0", page.Messages[0].Id)
	})

	t.Run("unread", func(t *testing.T) {
		page, err := store.List(ctx, persistence.ListRequest{
			Username: "alice", Container: persistence.ContainerUnread, Page: 1, PageSize: 10,
		})
		require.NoError(t, err)
		require.Len(t, page.Messages, 1)
		assert.Equal(t, "in5", page.Messages[0].Id)
	})

	t.Run("page past the end", func(t *testing.T) {
		page, err := store.List(ctx, persistence.ListRequest{
			Username: "alice", Container: persistence.ContainerInbox, Page: 9, PageSize: 10,
		})
		require.NoError(t, err)
		assert.NotNil(t, page.Messages)
		assert.Empty(t, page.Messages)
	})
}

func TestGroupStore_ConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	store := NewGroupStore()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var winners int

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if _, err := store.InsertGroup(ctx, "alice-bob"); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, winners)
}
