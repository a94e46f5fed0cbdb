package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"organizer/internal/models"
	"organizer/internal/store"
)

// DatePlanner drafts date plans.
type DatePlanner interface {
	SuggestDatePlan(ctx context.Context, prompt, date string) (models.DatePlan, error)
}

type DatePlans struct {
	*Resource[models.DatePlan, *models.DatePlan]
	ai DatePlanner
}

func NewDatePlans(backend store.Backend, planner DatePlanner) *DatePlans {
	return &DatePlans{
		Resource: NewResource[models.DatePlan](backend, store.TableDatePlans, "date"),
		ai:       planner,
	}
}

// Suggest drafts a plan without storing it.
func (s *DatePlans) Suggest(ctx context.Context, req models.SuggestDatePlanRequest) (models.DatePlan, error) {
	if s.ai == nil {
		return models.DatePlan{}, ErrAIDisabled
	}
	if err := Validate(store.TableDatePlans, req); err != nil {
		return models.DatePlan{}, err
	}
	return s.ai.SuggestDatePlan(ctx, req.Prompt, req.Date)
}

type Reminders struct {
	*Resource[models.Reminder, *models.Reminder]
	now func() time.Time
}

func NewReminders(backend store.Backend) *Reminders {
	return &Reminders{
		Resource: NewResource[models.Reminder](backend, store.TableReminders, "due_at"),
		now:      time.Now,
	}
}

// Due lists open reminders whose due time has passed, oldest first.
func (s *Reminders) Due(ctx context.Context, actor Actor) ([]models.Reminder, error) {
	rows, err := s.Table().List(ctx, store.Where("couple_id", actor.CoupleID).Eq("done", false).OrderBy("due_at", true))
	if err != nil {
		return nil, err
	}
	now := s.now()
	due := make([]models.Reminder, 0, len(rows))
	for i := range rows {
		if rows[i].IsDue(now) {
			due = append(due, rows[i])
		}
	}
	return due, nil
}

// Complete closes a reminder, or moves a recurring one to its next date.
func (s *Reminders) Complete(ctx context.Context, actor Actor, id uuid.UUID) (models.Reminder, error) {
	reminder, err := s.Get(ctx, actor, id)
	if err != nil {
		return models.Reminder{}, err
	}
	reminder.Complete()
	return s.Patch(ctx, actor, id, map[string]any{
		"done":   reminder.Done,
		"due_at": reminder.DueAt,
	})
}
