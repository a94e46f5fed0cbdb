package models

import (
	"time"

	"github.com/google/uuid"
)

// List is a shared list (groceries, movies to watch, places to go...).
// Items live in a jsonb column and are rewritten as a whole on each change.
type List struct {
	CoupleBase
	Name      string     `json:"name" validate:"required,min=1,max=255"`
	Kind      string     `json:"kind" validate:"max=40"`
	Items     []ListItem `json:"items" validate:"dive"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type ListItem struct {
	ID        uuid.UUID  `json:"id"`
	Text      string     `json:"text" validate:"required,min=1,max=255"`
	Done      bool       `json:"done"`
	AddedBy   *uuid.UUID `json:"added_by"`
	CreatedAt time.Time  `json:"created_at"`
}

func (l *List) FindItem(id uuid.UUID) (int, bool) {
	for i, item := range l.Items {
		if item.ID == id {
			return i, true
		}
	}
	return -1, false
}

// CompletedCount counts items marked done.
func (l *List) CompletedCount() int {
	n := 0
	for _, item := range l.Items {
		if item.Done {
			n++
		}
	}
	return n
}

type CreateListRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
	Kind string `json:"kind" validate:"max=40"`
}

type UpdateListRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
	Kind string `json:"kind" validate:"max=40"`
}

type CreateItemRequest struct {
	Text string `json:"text" validate:"required,min=1,max=255"`
}

type UpdateItemRequest struct {
	Text *string `json:"text,omitempty" validate:"omitempty,min=1,max=255"`
	Done *bool   `json:"done,omitempty"`
}

// ItemSuggestion is an autocomplete entry built from item history.
type ItemSuggestion struct {
	Text      string    `json:"text"`
	Frequency int       `json:"frequency"`
	LastUsed  time.Time `json:"last_used"`
}
