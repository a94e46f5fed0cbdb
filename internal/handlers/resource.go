package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"organizer/internal/service"
)

// CRUD is the couple-scoped record service behind a ResourceHandler.
type CRUD[T any] interface {
	List(ctx context.Context, actor service.Actor) ([]T, error)
	Get(ctx context.Context, actor service.Actor, id uuid.UUID) (T, error)
	Create(ctx context.Context, actor service.Actor, row T) (T, error)
	Replace(ctx context.Context, actor service.Actor, id uuid.UUID, row T) (T, error)
	Delete(ctx context.Context, actor service.Actor, id uuid.UUID) error
}

// ResourceHandler serves list, get, create, replace and delete for one
// record type. Validation happens in the service after ownership fields
// are stamped.
type ResourceHandler[T any] struct {
	resolver ActorResolver
	svc      CRUD[T]
}

func NewResourceHandler[T any](resolver ActorResolver, svc CRUD[T]) *ResourceHandler[T] {
	return &ResourceHandler[T]{resolver: resolver, svc: svc}
}

// Register mounts the five routes on group.
func (h *ResourceHandler[T]) Register(group *gin.RouterGroup) {
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
}

func (h *ResourceHandler[T]) List(c *gin.Context) {
	actor, ok := currentActor(c, h.resolver)
	if !ok {
		return
	}
	rows, err := h.svc.List(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *ResourceHandler[T]) Get(c *gin.Context) {
	actor, ok := currentActor(c, h.resolver)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	row, err := h.svc.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *ResourceHandler[T]) Create(c *gin.Context) {
	actor, ok := currentActor(c, h.resolver)
	if !ok {
		return
	}
	var row T
	if err := c.ShouldBindJSON(&row); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	created, err := h.svc.Create(c.Request.Context(), actor, row)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *ResourceHandler[T]) Update(c *gin.Context) {
	actor, ok := currentActor(c, h.resolver)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var row T
	if err := c.ShouldBindJSON(&row); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	updated, err := h.svc.Replace(c.Request.Context(), actor, id, row)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *ResourceHandler[T]) Delete(c *gin.Context) {
	actor, ok := currentActor(c, h.resolver)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": h.name() + " deleted"})
}

func (h *ResourceHandler[T]) name() string {
	if named, ok := h.svc.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "record"
}
