package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"organizer/internal/models"
	"organizer/internal/service"
)

// ItemHandler edits the items of one list. Each call answers with the
// whole list so the client can replace its copy.
type ItemHandler struct {
	profiles *service.Profiles
	lists    *service.Lists
}

func NewItemHandler(profiles *service.Profiles, lists *service.Lists) *ItemHandler {
	return &ItemHandler{profiles: profiles, lists: lists}
}

func (h *ItemHandler) CreateItem(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}
	listID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.CreateItemRequest
	if !bindJSON(c, &req) {
		return
	}

	list, err := h.lists.AddItem(c.Request.Context(), actor, listID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newListResponse(list))
}

func (h *ItemHandler) UpdateItem(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}
	listID, ok := paramID(c, "id")
	if !ok {
		return
	}
	itemID, ok := paramID(c, "itemId")
	if !ok {
		return
	}
	var req models.UpdateItemRequest
	if !bindJSON(c, &req) {
		return
	}

	list, err := h.lists.UpdateItem(c.Request.Context(), actor, listID, itemID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newListResponse(list))
}

func (h *ItemHandler) DeleteItem(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}
	listID, ok := paramID(c, "id")
	if !ok {
		return
	}
	itemID, ok := paramID(c, "itemId")
	if !ok {
		return
	}

	list, err := h.lists.RemoveItem(c.Request.Context(), actor, listID, itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newListResponse(list))
}
