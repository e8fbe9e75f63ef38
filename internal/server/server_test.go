package server

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goevery/rendezvous/internal/auth"
	"github.com/goevery/rendezvous/internal/broadcaster"
	"github.com/goevery/rendezvous/internal/chat"
	"github.com/goevery/rendezvous/internal/handler"
	"github.com/goevery/rendezvous/internal/messaging"
	"github.com/goevery/rendezvous/internal/metrics"
	"github.com/goevery/rendezvous/internal/persistence/memory"
	"github.com/goevery/rendezvous/internal/registry"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type testApp struct {
	server        *httptest.Server
	authenticator *auth.Authenticator
	users         *memory.UserStore
	messages      *memory.MessageStore
	groups        *memory.GroupStore
	presence      *registry.Tracker
	fanout        *broadcaster.InMemoryRegistry
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	logger := zap.NewNop()
	m := metrics.New(prometheus.NewRegistry())

	users := memory.NewUserStore()
	messages := memory.NewMessageStore()
	groups := memory.NewGroupStore()

	for _, user := range []chat.User{
		{Username: "alice", DisplayName: "Alice"},
		{Username: "bob", DisplayName: "Bob"},
	} {
		require.NoError(t, users.Create(context.Background(), user))
	}

	authenticator := auth.NewAuthenticator("test-secret", time.Hour)
	presence := registry.NewTracker(logger)
	fanout := broadcaster.NewInMemoryRegistry(logger, m)
	coordinator := messaging.NewCoordinator(logger, groups)
	hub := messaging.NewHub(logger, messaging.Config{
		MaxContentLength:     200,
		MarkThreadReadOnJoin: true,
	}, users, messages, coordinator, presence, fanout, m)

	router := NewRouter(logger,
		handler.NewHeartbeatHandler(presence),
		handler.NewSendHandler(hub))

	websocketServer := NewWebSocketServer(logger, WebSocketConfig{
		QueueSize:         16,
		ReadLimit:         4096,
		WriteTimeout:      time.Second,
		PongTimeout:       time.Minute,
		PingInterval:      30 * time.Second,
		DisconnectTimeout: time.Second,
		SendRate:          rate.Every(time.Minute),
		SendBurst:         3,
	}, &websocket.Upgrader{}, authenticator, hub, fanout, router)

	restServer := NewRESTServer(logger,
		authenticator,
		handler.NewRegisterHandler(logger, users),
		handler.NewLoginHandler(users, authenticator),
		handler.NewListMessagesHandler(messages),
		handler.NewGetMessageHandler(messages),
		handler.NewDeleteMessageHandler(logger, messages),
		handler.NewPresenceHandler(presence))

	mainRouter := mux.NewRouter()
	websocketServer.Register(mainRouter)
	restServer.Register(mainRouter)

	server := httptest.NewServer(mainRouter)
	t.Cleanup(server.Close)

	return &testApp{
		server:        server,
		authenticator: authenticator,
		users:         users,
		messages:      messages,
		groups:        groups,
		presence:      presence,
		fanout:        fanout,
	}
}

func (a *testApp) token(t *testing.T, username string) string {
	t.Helper()

	user, err := a.users.GetByUsername(context.Background(), username)
	require.NoError(t, err)

	token, _, err := a.authenticator.IssueToken(user)
	require.NoError(t, err)

	return token
}
