package handler

import (
	"time"

	"github.com/goevery/rendezvous/internal/messaging"
	"github.com/goevery/rendezvous/internal/registry"
)

type HeartbeatResponse struct {
	Timestamp     time.Time `json:"timestamp"`
	PartnerOnline bool      `json:"partnerOnline"`
}

type HeartbeatHandlerInterface interface {
	Handle(session *messaging.Session) HeartbeatResponse
}

type HeartbeatHandler struct {
	presence *registry.Tracker
}

func NewHeartbeatHandler(presence *registry.Tracker) *HeartbeatHandler {
	return &HeartbeatHandler{
		presence,
	}
}

func (h *HeartbeatHandler) Handle(session *messaging.Session) HeartbeatResponse {
	return HeartbeatResponse{
		Timestamp:     time.Now(),
		PartnerOnline: h.presence.IsOnline(session.PartnerUsername),
	}
}
