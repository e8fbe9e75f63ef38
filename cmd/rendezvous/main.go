package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/goevery/rendezvous/internal/auth"
	"github.com/goevery/rendezvous/internal/broadcaster"
	"github.com/goevery/rendezvous/internal/handler"
	"github.com/goevery/rendezvous/internal/messaging"
	"github.com/goevery/rendezvous/internal/metrics"
	"github.com/goevery/rendezvous/internal/persistence"
	"github.com/goevery/rendezvous/internal/persistence/memory"
	"github.com/goevery/rendezvous/internal/persistence/mongodb"
	"github.com/goevery/rendezvous/internal/registry"
	"github.com/goevery/rendezvous/internal/server"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Stores struct {
	Users    persistence.UserStore
	Groups   persistence.GroupStore
	Messages persistence.MessageStore

	close func(ctx context.Context) error
}

func (s Stores) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}

	return s.close(ctx)
}

func openStores(ctx context.Context, settings Settings) (Stores, error) {
	var stores Stores

	switch settings.Storage {
	case "memory":
		stores = Stores{
			Users:    memory.NewUserStore(),
			Groups:   memory.NewGroupStore(),
			Messages: memory.NewMessageStore(),
		}
	case "mongodb":
		client, err := mongodb.Connect(ctx, settings.MongoDBURI)
		if err != nil {
			return Stores{}, err
		}

		stores = Stores{
			Users:    mongodb.NewUserStore(client, settings.MongoDBDatabase),
			Groups:   mongodb.NewGroupStore(client, settings.MongoDBDatabase),
			Messages: mongodb.NewMessageStore(client, settings.MongoDBDatabase),
			close:    client.Disconnect,
		}
	default:
		return Stores{}, fmt.Errorf("unknown storage %q", settings.Storage)
	}

	for _, setup := range []func(context.Context) error{
		stores.Users.Setup,
		stores.Groups.Setup,
		stores.Messages.Setup,
	} {
		if err := setup(ctx); err != nil {
			_ = stores.Close(ctx)

			return Stores{}, fmt.Errorf("failed to setup storage: %w", err)
		}
	}

	return stores, nil
}

type App struct {
	logger          *zap.Logger
	settings        Settings
	coordinator     *messaging.Coordinator
	websocketServer *server.WebSocketServer
	restServer      *server.RESTServer
}

func NewApp(logger *zap.Logger, settings Settings, stores Stores) *App {
	var allowedOrigins []string
	if settings.AllowedOrigins != "" {
		allowedOrigins = strings.Split(settings.AllowedOrigins, ",")
	}

	originChecker := server.NewOriginChecker(allowedOrigins)
	websocketUpgrader := &websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin:       originChecker.Check,
		EnableCompression: true,
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	authenticator := auth.NewAuthenticator(settings.JWTSecret, settings.TokenTTL)

	presence := registry.NewTracker(logger)
	fanout := broadcaster.NewInMemoryRegistry(logger, m)
	coordinator := messaging.NewCoordinator(logger, stores.Groups)
	hub := messaging.NewHub(
		logger,
		messaging.Config{
			MaxContentLength:     settings.MaxContentLength,
			MarkThreadReadOnJoin: settings.MarkThreadReadOnJoin,
		},
		stores.Users,
		stores.Messages,
		coordinator,
		presence,
		fanout,
		m,
	)

	heartbeatHandler := handler.NewHeartbeatHandler(presence)
	sendHandler := handler.NewSendHandler(hub)
	registerHandler := handler.NewRegisterHandler(logger, stores.Users)
	loginHandler := handler.NewLoginHandler(stores.Users, authenticator)
	listMessagesHandler := handler.NewListMessagesHandler(stores.Messages)
	getMessageHandler := handler.NewGetMessageHandler(stores.Messages)
	deleteMessageHandler := handler.NewDeleteMessageHandler(logger, stores.Messages)
	presenceHandler := handler.NewPresenceHandler(presence)

	router := server.NewRouter(
		logger,
		heartbeatHandler,
		sendHandler,
	)

	websocketServer := server.NewWebSocketServer(
		logger,
		server.WebSocketConfig{
			QueueSize:         settings.QueueSize,
			ReadLimit:         settings.websocketReadLimit(),
			WriteTimeout:      settings.WriteTimeout,
			PongTimeout:       settings.PongTimeout,
			PingInterval:      settings.PingInterval,
			DisconnectTimeout: settings.DisconnectTimeout,
			SendRate:          rate.Limit(settings.SendRate),
			SendBurst:         settings.SendBurst,
		},
		websocketUpgrader,
		authenticator,
		hub,
		fanout,
		router,
	)
	restServer := server.NewRESTServer(
		logger,
		authenticator,
		registerHandler,
		loginHandler,
		listMessagesHandler,
		getMessageHandler,
		deleteMessageHandler,
		presenceHandler,
	)

	return &App{
		logger,
		settings,
		coordinator,
		websocketServer,
		restServer,
	}
}

func (a *App) setup(ctx context.Context) error {
	err := a.coordinator.Reset(ctx)
	if err != nil {
		return err
	}

	a.startHttpServer(ctx)

	return nil
}

func (a *App) startHttpServer(ctx context.Context) {
	notifyCtx, notifyCtxCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer notifyCtxCancel()

	address := fmt.Sprintf("0.0.0.0:%d", a.settings.Port)

	rootRouter := mux.NewRouter()
	rootRouter.Handle("/metrics", promhttp.Handler())

	router := rootRouter.
		PathPrefix(a.settings.BasePath).
		Subrouter()

	a.websocketServer.Register(router)
	a.restServer.Register(router)

	httpServer := &http.Server{
		Addr:    address,
		Handler: rootRouter,
	}

	a.logger.Info("starting http server",
		zap.String("address", address))

	go func() {
		err := httpServer.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("failed to start http server",
				zap.Error(err))
		}
	}()

	<-notifyCtx.Done()

	a.logger.Info("stopping http server")

	shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCtxCancel()

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http server shutdown failed",
			zap.Error(err))
	}

	a.logger.Info("http server stopped")
}

func main() {
	ctx := context.Background()

	_ = godotenv.Load()

	var settings Settings
	_, err := env.UnmarshalFromEnviron(&settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse settings from environment: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildZapLogger(settings.LogEncoding, settings.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	stores, err := openStores(connectCtx, settings)
	cancel()
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}

	app := NewApp(logger, settings, stores)

	err = app.setup(ctx)
	if err != nil {
		logger.Fatal("failed to setup", zap.Error(err))
	}

	closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = stores.Close(closeCtx)
	if err != nil {
		logger.Error("failed to close storage", zap.Error(err))
	}
}
