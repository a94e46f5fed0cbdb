package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"organizer/internal/models"
	"organizer/internal/service"
)

// AuthProvider issues sessions. The hosted backend's auth service and the
// local development provider both satisfy it.
type AuthProvider interface {
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Signup(ctx context.Context, req models.SignupRequest) (*models.Session, uuid.UUID, error)
	Refresh(ctx context.Context, refreshToken string) (*models.Session, error)
}

type AuthHandler struct {
	provider AuthProvider
	profiles *service.Profiles
	logger   *zap.Logger
}

func NewAuthHandler(provider AuthProvider, profiles *service.Profiles, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{provider: provider, profiles: profiles, logger: logger}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	session, userID, err := h.provider.Signup(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	// The profile row is created here so the partner can find the user
	// right after signup. A failure only costs the display name.
	if req.DisplayName != "" {
		name := req.DisplayName
		if _, err := h.profiles.Update(c.Request.Context(), userID, models.UpdateProfileRequest{DisplayName: &name}); err != nil {
			h.logger.Warn("profile setup after signup failed", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}

	if session == nil {
		c.JSON(http.StatusCreated, gin.H{"user_id": userID, "confirmation_required": true})
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.provider.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.provider.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
