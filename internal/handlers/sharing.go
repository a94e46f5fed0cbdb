package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"organizer/internal/service"
)

// SharingHandler pairs two accounts into a couple. One partner creates an
// invite code, the other joins with it; every couple-scoped row is shared
// from then on.
type SharingHandler struct {
	profiles *service.Profiles
}

func NewSharingHandler(profiles *service.Profiles) *SharingHandler {
	return &SharingHandler{profiles: profiles}
}

type joinCoupleRequest struct {
	CoupleID uuid.UUID `json:"couple_id" validate:"required"`
}

func (h *SharingHandler) Invite(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	coupleID, err := h.profiles.Invite(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"couple_id": coupleID})
}

func (h *SharingHandler) Join(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req joinCoupleRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.profiles.Join(c.Request.Context(), userID, req.CoupleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *SharingHandler) Members(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}

	members, err := h.profiles.Members(c.Request.Context(), actor.CoupleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"couple_id": actor.CoupleID, "members": members})
}
