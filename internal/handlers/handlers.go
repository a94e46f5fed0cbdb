// Package handlers exposes the services over HTTP with gin.
package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"organizer/internal/auth"
	"organizer/internal/service"
)

var validate = validator.New()

// ActorResolver maps the authenticated user to their couple.
type ActorResolver interface {
	Actor(ctx context.Context, userID uuid.UUID) (service.Actor, error)
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return uuid.Nil, false
	}
	return userID, true
}

func emailOf(c *gin.Context) string { return auth.GetEmail(c) }

func currentActor(c *gin.Context, resolver ActorResolver) (service.Actor, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return service.Actor{}, false
	}
	actor, err := resolver.Actor(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return service.Actor{}, false
	}
	return actor, true
}

func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON decodes the body into dst and runs its validation tags.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// readImage returns the bytes of the multipart "image" field. Files larger
// than service.MaxImageBytes are refused before they are read whole.
func readImage(c *gin.Context) ([]byte, bool) {
	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return nil, false
	}
	if header.Size > service.MaxImageBytes {
		respondError(c, service.ErrImageTooLarge)
		return nil, false
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read image"})
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxImageBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read image"})
		return nil, false
	}
	return data, true
}
