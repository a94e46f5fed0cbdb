package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"organizer/internal/models"
	"organizer/internal/service"
)

type UserHandler struct {
	profiles *service.Profiles
}

func NewUserHandler(profiles *service.Profiles) *UserHandler {
	return &UserHandler{profiles: profiles}
}

type profileResponse struct {
	models.UserProfile
	Email string `json:"email,omitempty"`
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	profile, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profileResponse{UserProfile: profile, Email: emailOf(c)})
}

func (h *UserHandler) UpdateCurrentUser(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.profiles.Update(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profileResponse{UserProfile: profile, Email: emailOf(c)})
}
