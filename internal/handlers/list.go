package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"organizer/internal/models"
	"organizer/internal/service"
)

type ListHandler struct {
	profiles *service.Profiles
	lists    *service.Lists
}

func NewListHandler(profiles *service.Profiles, lists *service.Lists) *ListHandler {
	return &ListHandler{profiles: profiles, lists: lists}
}

type listResponse struct {
	models.List
	ItemCount      int `json:"item_count"`
	CompletedCount int `json:"completed_count"`
}

func newListResponse(list models.List) listResponse {
	return listResponse{List: list, ItemCount: len(list.Items), CompletedCount: list.CompletedCount()}
}

func (h *ListHandler) GetLists(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}

	lists, err := h.lists.List(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]listResponse, 0, len(lists))
	for _, list := range lists {
		out = append(out, newListResponse(list))
	}
	c.JSON(http.StatusOK, gin.H{"lists": out})
}

func (h *ListHandler) CreateList(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}
	var req models.CreateListRequest
	if !bindJSON(c, &req) {
		return
	}

	list, err := h.lists.Create(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newListResponse(list))
}

func (h *ListHandler) GetList(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	list, err := h.lists.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newListResponse(list))
}

func (h *ListHandler) UpdateList(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateListRequest
	if !bindJSON(c, &req) {
		return
	}

	list, err := h.lists.Rename(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newListResponse(list))
}

func (h *ListHandler) DeleteList(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.lists.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "List deleted successfully"})
}

func (h *ListHandler) ClearCompleted(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	list, removed, err := h.lists.ClearCompleted(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": newListResponse(list), "removed": removed})
}

// Suggestions serves item autocomplete from the history of every list the
// couple keeps.
func (h *ListHandler) Suggestions(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	suggestions, err := h.lists.Suggestions(c.Request.Context(), actor, c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions, "count": len(suggestions)})
}
