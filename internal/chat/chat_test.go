package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGroupName(t *testing.T) {
	pairs := [][2]string{
		{"alice", "bob"},
		{"bob", "alice"},
		{"zed", "amy"},
		{"lisa", "lisa2"},
		{"same", "same"},
	}

	for _, p := range pairs {
		assert.Equal(t, GroupName(p[0], p[1]), GroupName(p[1], p[0]))
	}

	assert.Equal(t, "alice-bob", GroupName("bob", "alice"))
	assert.Equal(t, "amy-zed", GroupName("zed", "amy"))
}

func TestGroup(t *testing.T) {
	group := Group{
		Name: "alice-bob",
		Connections: []Connection{
			{ConnectionId: "c1", Username: "alice"},
			{ConnectionId: "c2", Username: "alice"},
		},
	}

	assert.True(t, group.HasMember("alice"))
	assert.False(t, group.HasMember("bob"))
	assert.Equal(t, []string{"c1", "c2"}, group.ConnectionIds())
	assert.Empty(t, Group{}.ConnectionIds())
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "alice", NormalizeUsername("  Alice "))
	assert.Equal(t, "", NormalizeUsername("   "))
}

func TestMessage_IsRead(t *testing.T) {
	now := time.Now()

	assert.False(t, Message{}.IsRead())
	assert.True(t, Message{ReadAt: &now}.IsRead())
}
