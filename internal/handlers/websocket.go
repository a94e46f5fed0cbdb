package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"organizer/internal/service"
)

// RealtimeHub is the websocket hub as seen by the HTTP layer.
type RealtimeHub interface {
	ServeWS(c *gin.Context, userID uuid.UUID, coupleID *uuid.UUID)
	GetOnlineUsers() []uuid.UUID
}

type WebSocketHandler struct {
	hub      RealtimeHub
	profiles *service.Profiles
}

func NewWebSocketHandler(hub RealtimeHub, profiles *service.Profiles) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, profiles: profiles}
}

// HandleWebSocket upgrades the connection. Users without a couple still
// connect; they only receive changes to global tables.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	profile, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.hub.ServeWS(c, userID, profile.CoupleID)
}

// GetOnlineUsers lists which members of the caller's couple are connected.
func (h *WebSocketHandler) GetOnlineUsers(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}

	members, err := h.profiles.Members(c.Request.Context(), actor.CoupleID)
	if err != nil {
		respondError(c, err)
		return
	}
	inCouple := make(map[uuid.UUID]bool, len(members))
	for _, m := range members {
		inCouple[m.ID] = true
	}

	online := make([]uuid.UUID, 0, len(members))
	for _, id := range h.hub.GetOnlineUsers() {
		if inCouple[id] {
			online = append(online, id)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"online_users": online,
		"count":        len(online),
	})
}
