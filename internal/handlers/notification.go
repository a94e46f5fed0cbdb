package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"organizer/internal/service"
)

// NotificationHandler surfaces reminders that are due.
type NotificationHandler struct {
	profiles  *service.Profiles
	reminders *service.Reminders
}

func NewNotificationHandler(profiles *service.Profiles, reminders *service.Reminders) *NotificationHandler {
	return &NotificationHandler{profiles: profiles, reminders: reminders}
}

func (h *NotificationHandler) GetDue(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}

	due, err := h.reminders.Due(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminders": due, "count": len(due)})
}

// Complete closes a reminder. Recurring reminders move to their next date
// and stay open.
func (h *NotificationHandler) Complete(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	reminder, err := h.reminders.Complete(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reminder)
}
