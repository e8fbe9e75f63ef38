package handler

import "github.com/goevery/rendezvous/internal/registry"

type PresenceResponse struct {
	Usernames []string `json:"usernames"`
}

type PresenceHandler struct {
	presence *registry.Tracker
}

func NewPresenceHandler(presence *registry.Tracker) *PresenceHandler {
	return &PresenceHandler{
		presence,
	}
}

func (h *PresenceHandler) Handle() PresenceResponse {
	return PresenceResponse{
		Usernames: h.presence.OnlineUsers(),
	}
}
