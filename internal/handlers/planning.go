package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"organizer/internal/models"
	"organizer/internal/service"
)

type PlanningHandler struct {
	profiles  *service.Profiles
	datePlans *service.DatePlans
	expenses  *service.Expenses
}

func NewPlanningHandler(profiles *service.Profiles, datePlans *service.DatePlans, expenses *service.Expenses) *PlanningHandler {
	return &PlanningHandler{profiles: profiles, datePlans: datePlans, expenses: expenses}
}

// SuggestDatePlan drafts a plan for the client to review. Nothing is stored.
func (h *PlanningHandler) SuggestDatePlan(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	var req models.SuggestDatePlanRequest
	if !bindJSON(c, &req) {
		return
	}

	plan, err := h.datePlans.Suggest(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *PlanningHandler) Balance(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}

	balance, err := h.expenses.Balance(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}
