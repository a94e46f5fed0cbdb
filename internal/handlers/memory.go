package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"organizer/internal/service"
)

// MemoryHandler attaches photos to memories. CRUD goes through a
// ResourceHandler.
type MemoryHandler struct {
	profiles *service.Profiles
	memories *service.Memories
}

func NewMemoryHandler(profiles *service.Profiles, memories *service.Memories) *MemoryHandler {
	return &MemoryHandler{profiles: profiles, memories: memories}
}

func (h *MemoryHandler) AddImage(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	data, ok := readImage(c)
	if !ok {
		return
	}

	memory, err := h.memories.AddImage(c.Request.Context(), actor, id, data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, memory)
}
