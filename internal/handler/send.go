package handler

import (
	"context"
	"errors"

	"github.com/goevery/rendezvous/internal/chat"
	"github.com/goevery/rendezvous/internal/ierr"
	"github.com/goevery/rendezvous/internal/messaging"
)

type SendRequest struct {
	RecipientUsername string `json:"recipientUsername"`
	Content           string `json:"content"`
}

type SendResponse struct {
	Message chat.Message `json:"message"`
}

type SendHandlerInterface interface {
	Handle(ctx context.Context, session *messaging.Session, req SendRequest) (SendResponse, error)
}

type SendHandler struct {
	hub *messaging.Hub
}

func NewSendHandler(hub *messaging.Hub) *SendHandler {
	return &SendHandler{
		hub,
	}
}

func (h *SendHandler) Handle(ctx context.Context, session *messaging.Session, req SendRequest) (SendResponse, error) {
	if session.State() != messaging.SessionJoined {
		return SendResponse{},
			ierr.New(ierr.ErrorCodeFailedPrecondition, errors.New("session is not joined"))
	}

	recipient := req.RecipientUsername
	if recipient == "" {
		recipient = session.PartnerUsername
	}

	message, err := h.hub.Send(ctx, session.Connection.Username, messaging.SendRequest{
		RecipientUsername: recipient,
		Content:           req.Content,
	})
	if err != nil {
		return SendResponse{}, err
	}

	return SendResponse{
		Message: message,
	}, nil
}
