package messaging

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goevery/rendezvous/internal/broadcaster"
	"github.com/goevery/rendezvous/internal/chat"
	"github.com/goevery/rendezvous/internal/ierr"
	"github.com/goevery/rendezvous/internal/metrics"
	"github.com/goevery/rendezvous/internal/persistence"
	"github.com/goevery/rendezvous/internal/registry"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

type Config struct {
	MaxContentLength int
	// MarkThreadReadOnJoin marks the partner's unread messages as read when
	// the thread is delivered to a joining connection.
	MarkThreadReadOnJoin bool
}

type ConnectRequest struct {
	ConnectionId    string
	Username        string
	DisplayName     string
	PartnerUsername string
}

type SendRequest struct {
	RecipientUsername string
	Content           string
}

// Hub runs the session lifecycle and the message delivery protocol on top of
// the presence tracker, the group coordinator and the durable stores.
type Hub struct {
	logger      *zap.Logger
	config      Config
	users       persistence.UserStore
	messages    persistence.MessageStore
	coordinator *Coordinator
	presence    *registry.Tracker
	broadcaster broadcaster.Registry
	metrics     *metrics.Metrics

	validate    *validator.Validate
	contentRule string
	senders     *keyedMutex
	now         func() time.Time
}

func NewHub(
	logger *zap.Logger,
	config Config,
	users persistence.UserStore,
	messages persistence.MessageStore,
	coordinator *Coordinator,
	presence *registry.Tracker,
	broadcaster broadcaster.Registry,
	metrics *metrics.Metrics,
) *Hub {
	return &Hub{
		logger:      logger,
		config:      config,
		users:       users,
		messages:    messages,
		coordinator: coordinator,
		presence:    presence,
		broadcaster: broadcaster,
		metrics:     metrics,
		validate:    validator.New(),
		contentRule: "required,max=" + strconv.Itoa(config.MaxContentLength),
		senders:     newKeyedMutex(),
		now: func() time.Time {
			// stores keep millisecond precision
			return time.Now().UTC().Truncate(time.Millisecond)
		},
	}
}

// Connect moves a new connection from Opening to Joined. When the returned
// session is non-nil the caller owns it and must call Disconnect, even if an
// error is returned as well.
//
// The connection joins the group before the thread is loaded, so a message
// sent in between reaches it as messageDelivered and again inside
// threadDelivered. Clients dedupe by message id.
func (h *Hub) Connect(ctx context.Context, req ConnectRequest) (*Session, []chat.Message, error) {
	username := chat.NormalizeUsername(req.Username)
	partner := chat.NormalizeUsername(req.PartnerUsername)

	if partner == "" {
		return nil, nil, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("partner username is required"))
	}

	if partner == username {
		return nil, nil, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("you cannot open a conversation with yourself"))
	}

	_, err := h.users.GetByUsername(ctx, partner)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, nil, ierr.New(ierr.ErrorCodeNotFound, errors.New("user not found"))
	}
	if err != nil {
		return nil, nil, ierr.New(ierr.ErrorCodeInternal, fmt.Errorf("failed to get user: %w", err))
	}

	connection := chat.Connection{
		ConnectionId: req.ConnectionId,
		Username:     username,
	}
	session := newSession(connection, req.DisplayName, partner)

	logger := h.logger.With(
		zap.String("connectionId", connection.ConnectionId),
		zap.String("username", username),
		zap.String("group", session.GroupName))

	if h.presence.AddConnection(username, connection.ConnectionId) {
		h.metrics.OnlineUsers.Inc()
	}

	group, err := h.coordinator.JoinGroup(ctx, connection, session.GroupName)
	if err != nil {
		h.removePresence(connection)

		return nil, nil, err
	}

	session.transition(SessionOpening, SessionJoined)

	logger.Debug("connection joined group",
		zap.Int("members", len(group.Connections)))

	h.broadcaster.Deliver(
		broadcaster.NewEvent(broadcaster.EventMembershipUpdated, group),
		group.ConnectionIds())

	thread, err := h.loadThread(ctx, logger, session)
	if err != nil {
		return session, nil, err
	}

	h.broadcaster.Deliver(
		broadcaster.NewEvent(broadcaster.EventThreadDelivered, thread),
		[]string{connection.ConnectionId})

	return session, thread, nil
}

func (h *Hub) loadThread(ctx context.Context, logger *zap.Logger, session *Session) ([]chat.Message, error) {
	username := session.Connection.Username

	thread, err := h.messages.Thread(ctx, username, session.PartnerUsername)
	if err != nil {
		return nil, ierr.New(ierr.ErrorCodeInternal, fmt.Errorf("failed to load message thread: %w", err))
	}

	if !h.config.MarkThreadReadOnJoin {
		return thread, nil
	}

	readAt := h.now()

	updated, err := h.messages.MarkThreadRead(ctx, username, session.PartnerUsername, readAt)
	if err != nil {
		logger.Error("failed to mark thread as read", zap.Error(err))

		return thread, nil
	}

	if updated == 0 {
		return thread, nil
	}

	for i := range thread {
		if thread[i].RecipientUsername == username && thread[i].ReadAt == nil {
			thread[i].ReadAt = &readAt
		}
	}

	return thread, nil
}

// Disconnect moves a joined session to Closed. It is idempotent. Presence is
// removed even when the group cannot be left.
func (h *Hub) Disconnect(ctx context.Context, session *Session) error {
	if !session.transition(SessionJoined, SessionClosed) {
		return nil
	}

	group, err := h.coordinator.LeaveGroup(ctx, session.Connection.ConnectionId)

	h.removePresence(session.Connection)

	if err != nil {
		h.logger.Error("failed to leave group",
			zap.String("connectionId", session.Connection.ConnectionId),
			zap.String("group", session.GroupName),
			zap.Error(err))

		return err
	}

	h.broadcaster.Deliver(
		broadcaster.NewEvent(broadcaster.EventMembershipUpdated, group),
		group.ConnectionIds())

	return nil
}

func (h *Hub) removePresence(connection chat.Connection) {
	if h.presence.RemoveConnection(connection.Username, connection.ConnectionId) {
		h.metrics.OnlineUsers.Dec()
	}
}

// Send persists a message from sender to the recipient and fans it out. The
// message is read at creation when the recipient is viewing the conversation;
// otherwise the recipient's other open connections get a NewMessageAlert.
func (h *Hub) Send(ctx context.Context, sender string, req SendRequest) (message chat.Message, err error) {
	defer func() {
		if err != nil {
			h.metrics.SendFailures.WithLabelValues(string(ierr.CodeOf(err))).Inc()
		}
	}()

	senderUsername := chat.NormalizeUsername(sender)
	recipientUsername := chat.NormalizeUsername(req.RecipientUsername)

	if senderUsername == recipientUsername {
		return chat.Message{}, ierr.New(ierr.ErrorCodeInvalidArgument, chat.ErrSelfMessage)
	}

	if err := h.validate.Var(req.Content, h.contentRule); err != nil {
		return chat.Message{}, ierr.New(ierr.ErrorCodeInvalidArgument,
			fmt.Errorf("content is required and must not exceed %d characters", h.config.MaxContentLength))
	}

	unlock := h.senders.Lock(senderUsername)
	defer unlock()

	senderUser, err := h.users.GetByUsername(ctx, senderUsername)
	if errors.Is(err, persistence.ErrNotFound) {
		return chat.Message{}, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("sender not found"))
	}
	if err != nil {
		return chat.Message{}, ierr.Wrap(ierr.ErrorCodeInternal, chat.ErrPersistence, err)
	}

	recipientUser, err := h.users.GetByUsername(ctx, recipientUsername)
	if errors.Is(err, persistence.ErrNotFound) {
		return chat.Message{}, ierr.New(ierr.ErrorCodeNotFound, chat.ErrRecipientNotFound)
	}
	if err != nil {
		return chat.Message{}, ierr.Wrap(ierr.ErrorCodeInternal, chat.ErrPersistence, err)
	}

	message = chat.Message{
		Id:                   gonanoid.Must(),
		SenderUsername:       senderUser.Username,
		SenderDisplayName:    senderUser.DisplayName,
		RecipientUsername:    recipientUser.Username,
		RecipientDisplayName: recipientUser.DisplayName,
		Content:              req.Content,
		SentAt:               h.now(),
	}

	groupName := chat.GroupName(senderUser.Username, recipientUser.Username)

	group, err := h.coordinator.GetGroup(ctx, groupName)
	if err != nil {
		return chat.Message{}, ierr.Wrap(ierr.ErrorCodeInternal, chat.ErrPersistence, err)
	}

	recipientPresent := group.HasMember(recipientUser.Username)
	if recipientPresent {
		readAt := message.SentAt
		message.ReadAt = &readAt
	}

	err = h.messages.Save(ctx, message)
	if err != nil {
		h.logger.Error("failed to save message",
			zap.String("sender", senderUser.Username),
			zap.String("recipient", recipientUser.Username),
			zap.Error(err))

		return chat.Message{}, ierr.Wrap(ierr.ErrorCodeInternal, chat.ErrPersistence, err)
	}

	h.metrics.MessagesSent.WithLabelValues(strconv.FormatBool(recipientPresent)).Inc()

	if !recipientPresent {
		h.alert(senderUser, recipientUser.Username)
	}

	h.broadcaster.Deliver(
		broadcaster.NewEvent(broadcaster.EventMessageDelivered, message),
		group.ConnectionIds())

	return message, nil
}

func (h *Hub) alert(sender chat.User, recipient string) {
	connectionIds := h.presence.GetConnectionsForUser(recipient)
	if len(connectionIds) == 0 {
		return
	}

	h.broadcaster.Deliver(
		broadcaster.NewEvent(broadcaster.EventNewMessageAlert, chat.NewMessageAlert{
			Username:    sender.Username,
			DisplayName: sender.DisplayName,
		}),
		connectionIds)
}
