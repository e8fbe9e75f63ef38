package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/goevery/rendezvous/internal/chat"
	"github.com/goevery/rendezvous/internal/ierr"
	"github.com/goevery/rendezvous/internal/persistence"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
)

type ListMessagesRequest struct {
	Username  string `json:"username" validate:"required"`
	Container string `json:"container" validate:"omitempty,oneof=inbox outbox unread"`
	Page      int    `json:"page" validate:"gte=0"`
	PageSize  int    `json:"pageSize" validate:"gte=0,lte=100"`
}

type ListMessagesHandler struct {
	validate *validator.Validate
	messages persistence.MessageStore
}

func NewListMessagesHandler(messages persistence.MessageStore) *ListMessagesHandler {
	return &ListMessagesHandler{
		validate: newValidator(),
		messages: messages,
	}
}

func (h *ListMessagesHandler) Handle(ctx context.Context, req ListMessagesRequest) (persistence.Page, error) {
	if err := h.validate.Struct(req); err != nil {
		return persistence.Page{}, invalidArgument(err)
	}

	request := persistence.ListRequest{
		Username:  req.Username,
		Container: persistence.Container(req.Container),
		Page:      req.Page,
		PageSize:  req.PageSize,
	}

	if request.Container == "" {
		request.Container = persistence.ContainerUnread
	}
	if request.Page == 0 {
		request.Page = 1
	}
	if request.PageSize == 0 {
		request.PageSize = defaultPageSize
	}

	page, err := h.messages.List(ctx, request)
	if err != nil {
		return persistence.Page{}, fmt.Errorf("failed to list messages: %w", err)
	}

	return page, nil
}

type MessageRequest struct {
	Username string `json:"username" validate:"required"`
	Id       string `json:"id" validate:"required"`
}

// findOwnMessage loads a message the user either sent or received.
func findOwnMessage(ctx context.Context, messages persistence.MessageStore, req MessageRequest) (chat.Message, error) {
	message, err := messages.Get(ctx, req.Id)
	if errors.Is(err, persistence.ErrNotFound) {
		return chat.Message{}, ierr.New(ierr.ErrorCodeNotFound, errors.New("message not found"))
	}
	if err != nil {
		return chat.Message{}, fmt.Errorf("failed to get message: %w", err)
	}

	if message.SenderUsername != req.Username && message.RecipientUsername != req.Username {
		return chat.Message{}, ierr.New(ierr.ErrorCodePermissionDenied, errors.New("you cannot access this message"))
	}

	return message, nil
}

type GetMessageHandler struct {
	validate *validator.Validate
	messages persistence.MessageStore
}

func NewGetMessageHandler(messages persistence.MessageStore) *GetMessageHandler {
	return &GetMessageHandler{
		validate: newValidator(),
		messages: messages,
	}
}

func (h *GetMessageHandler) Handle(ctx context.Context, req MessageRequest) (chat.Message, error) {
	if err := h.validate.Struct(req); err != nil {
		return chat.Message{}, invalidArgument(err)
	}

	return findOwnMessage(ctx, h.messages, req)
}

type DeleteMessageHandler struct {
	logger   *zap.Logger
	validate *validator.Validate
	messages persistence.MessageStore
}

func NewDeleteMessageHandler(logger *zap.Logger, messages persistence.MessageStore) *DeleteMessageHandler {
	return &DeleteMessageHandler{
		logger:   logger,
		validate: newValidator(),
		messages: messages,
	}
}

func (h *DeleteMessageHandler) Handle(ctx context.Context, req MessageRequest) error {
	if err := h.validate.Struct(req); err != nil {
		return invalidArgument(err)
	}

	if _, err := findOwnMessage(ctx, h.messages, req); err != nil {
		return err
	}

	err := h.messages.Delete(ctx, req.Id)
	if errors.Is(err, persistence.ErrNotFound) {
		return ierr.New(ierr.ErrorCodeNotFound, errors.New("message not found"))
	}
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	h.logger.Info("message deleted",
		zap.String("messageId", req.Id),
		zap.String("username", req.Username))

	return nil
}
