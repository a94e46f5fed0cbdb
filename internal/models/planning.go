package models

import (
	"time"

	"github.com/google/uuid"
)

type DatePlan struct {
	CoupleBase
	Title        string     `json:"title" validate:"required,min=1,max=200"`
	Date         string     `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Status       string     `json:"status" validate:"omitempty,oneof=idea planned done"`
	RestaurantID *uuid.UUID `json:"restaurant_id"`
	Stops        []string   `json:"stops"`
	Budget       float64    `json:"budget" validate:"min=0"`
	Notes        string     `json:"notes"`
}

type Memory struct {
	CoupleBase
	Title       string   `json:"title" validate:"required,min=1,max=200"`
	Description string   `json:"description"`
	Date        string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Place       string   `json:"place"`
	ImageURLs   []string `json:"image_urls"`
}

type Reminder struct {
	CoupleBase
	Title      string     `json:"title" validate:"required,min=1,max=200"`
	DueAt      *time.Time `json:"due_at"`
	Done       bool       `json:"done"`
	Recurrence string     `json:"recurrence" validate:"omitempty,oneof=daily weekly monthly yearly"`
}

type SuggestDatePlanRequest struct {
	Prompt string `json:"prompt" validate:"required,max=2000"`
	Date   string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// IsDue reports whether an open reminder's due time has passed.
func (r *Reminder) IsDue(now time.Time) bool {
	return !r.Done && r.DueAt != nil && !r.DueAt.After(now)
}

// Complete marks the reminder done. Recurring reminders stay open and move
// to their next due time instead.
func (r *Reminder) Complete() {
	if r.Recurrence == "" || r.DueAt == nil {
		r.Done = true
		return
	}
	var next time.Time
	switch r.Recurrence {
	case "daily":
		next = r.DueAt.AddDate(0, 0, 1)
	case "weekly":
		next = r.DueAt.AddDate(0, 0, 7)
	case "monthly":
		next = addMonths(*r.DueAt, 1)
	case "yearly":
		next = addMonths(*r.DueAt, 12)
	default:
		r.Done = true
		return
	}
	r.DueAt = &next
	r.Done = false
}

// addMonths moves t forward by n calendar months, clamping the day to the
// end of the target month so Jan 31 becomes Feb 28 or 29.
func addMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}
