package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/goevery/rendezvous/internal/auth"
	"github.com/goevery/rendezvous/internal/broadcaster"
	"github.com/goevery/rendezvous/internal/ierr"
	"github.com/goevery/rendezvous/internal/messaging"
	"github.com/goevery/rendezvous/internal/registry"
	"github.com/goevery/rendezvous/internal/rpc"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var errConnectionClosed = errors.New("connection closed")

type WebSocketConfig struct {
	QueueSize         int
	ReadLimit         int64
	WriteTimeout      time.Duration
	PongTimeout       time.Duration
	PingInterval      time.Duration
	DisconnectTimeout time.Duration
	SendRate          rate.Limit
	SendBurst         int
}

type WebSocketServer struct {
	logger        *zap.Logger
	config        WebSocketConfig
	upgrader      *websocket.Upgrader
	authenticator *auth.Authenticator
	hub           *messaging.Hub
	registry      broadcaster.Registry
	router        *Router
}

func NewWebSocketServer(
	logger *zap.Logger,
	config WebSocketConfig,
	upgrader *websocket.Upgrader,
	authenticator *auth.Authenticator,
	hub *messaging.Hub,
	registry broadcaster.Registry,
	router *Router,
) *WebSocketServer {
	return &WebSocketServer{
		logger,
		config,
		upgrader,
		authenticator,
		hub,
		registry,
		router,
	}
}

func (s *WebSocketServer) Register(router *mux.Router) {
	router.HandleFunc("/hub", s.handle).Methods("GET")
}

func (s *WebSocketServer) handle(w http.ResponseWriter, r *http.Request) {
	authentication, err := authenticateRequest(s.authenticator, r)
	if err != nil {
		http.Error(w, err.Error(), ierr.CodeOf(err).HTTPStatus())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(s.config.ReadLimit)

	connection := broadcaster.NewConnection(
		registry.GenerateConnectionId(),
		authentication.Subject,
		s.config.QueueSize,
	)

	logger := s.logger.With(
		zap.String("connectionId", connection.Id),
		zap.String("username", connection.Username))

	if err := s.registry.Register(connection); err != nil {
		logger.Error("failed to register connection", zap.Error(err))
		return
	}
	defer s.registry.Unregister(connection.Id)

	writer := &connectionWriter{conn: conn, timeout: s.config.WriteTimeout}

	stopWriter := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump(logger, writer, connection, stopWriter)
	}()

	session, _, err := s.hub.Connect(r.Context(), messaging.ConnectRequest{
		ConnectionId:    connection.Id,
		Username:        authentication.Subject,
		DisplayName:     authentication.DisplayName,
		PartnerUsername: r.URL.Query().Get("user"),
	})
	if session != nil {
		defer s.disconnect(r.Context(), logger, session)
	}
	if err != nil {
		logger.Info("failed to open session", zap.Error(err))
		writer.close(closeCode(err), closeReason(err))
	} else {
		logger.Info("websocket session opened",
			zap.String("partner", session.PartnerUsername))

		s.readLoop(r.Context(), logger, conn, writer, session)
	}

	close(stopWriter)
	<-writerDone

	writer.close(websocket.CloseNormalClosure, "")
}

func (s *WebSocketServer) disconnect(ctx context.Context, logger *zap.Logger, session *messaging.Session) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.DisconnectTimeout)
	defer cancel()

	err := s.hub.Disconnect(ctx, session)
	if err != nil {
		logger.Error("failed to close session", zap.Error(err))
		return
	}

	logger.Info("websocket session closed")
}

func (s *WebSocketServer) readLoop(
	ctx context.Context,
	logger *zap.Logger,
	conn *websocket.Conn,
	writer *connectionWriter,
	session *messaging.Session,
) {
	extendDeadline := func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.config.PongTimeout))
	}

	_ = extendDeadline("")
	conn.SetPongHandler(extendDeadline)

	limiter := rate.NewLimiter(s.config.SendRate, s.config.SendBurst)

	for {
		var request rpc.Request
		err := conn.ReadJSON(&request)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		_ = extendDeadline("")

		var response *rpc.Response
		if request.Method == "send" && !limiter.Allow() {
			reply := request.ReplyWithError(
				ierr.New(ierr.ErrorCodeResourceExhausted, errors.New("send rate exceeded")))
			response = &reply
		} else {
			response = s.router.RouteRequest(ctx, session, request)
		}

		if response == nil {
			continue
		}

		if err := writer.writeJSON(response); err != nil {
			logger.Debug("failed to write response", zap.Error(err))
			return
		}
	}
}

func (s *WebSocketServer) writePump(
	logger *zap.Logger,
	writer *connectionWriter,
	connection *broadcaster.Connection,
	stop <-chan struct{},
) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case event, ok := <-connection.Send:
			if !ok {
				// The registry dropped a connection that could not keep up. Closing
				// the socket unblocks the read loop so the session is torn down now.
				writer.abort(websocket.ClosePolicyViolation, "too slow")
				return
			}

			notification, err := rpc.NewNotification(event.Method, event.Payload)
			if err != nil {
				logger.Error("failed to encode notification",
					zap.String("method", event.Method),
					zap.Error(err))
				continue
			}

			if err := writer.writeJSON(notification); err != nil {
				if !errors.Is(err, errConnectionClosed) {
					logger.Debug("failed to write notification", zap.Error(err))
				}
				return
			}
		case <-ticker.C:
			if err := writer.ping(); err != nil {
				return
			}
		}
	}
}

// connectionWriter serializes writes from the read loop and the write pump.
type connectionWriter struct {
	conn    *websocket.Conn
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

func (w *connectionWriter) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errConnectionClosed
	}

	_ = w.conn.SetWriteDeadline(time.Now().Add(w.timeout))

	return w.conn.WriteJSON(v)
}

func (w *connectionWriter) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errConnectionClosed
	}

	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(w.timeout))
}

// close sends a close frame once; later writes fail with errConnectionClosed.
func (w *connectionWriter) close(code int, reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	w.closed = true

	_ = w.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(w.timeout))
}

// abort sends a close frame and closes the underlying connection without
// waiting for the peer to answer.
func (w *connectionWriter) abort(code int, reason string) {
	w.close(code, reason)

	_ = w.conn.Close()
}

func closeCode(err error) int {
	switch ierr.CodeOf(err) {
	case ierr.ErrorCodeInvalidArgument, ierr.ErrorCodeNotFound:
		return websocket.ClosePolicyViolation
	default:
		return websocket.CloseInternalServerErr
	}
}

func closeReason(err error) string {
	var e ierr.Error
	if errors.As(err, &e) {
		return e.Message
	}

	return "internal error"
}
