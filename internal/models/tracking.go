package models

import "github.com/google/uuid"

type Expense struct {
	CoupleBase
	Description string    `json:"description" validate:"required,max=200"`
	AmountCents int64     `json:"amount_cents" validate:"min=0"`
	Category    string    `json:"category"`
	PaidBy      uuid.UUID `json:"paid_by"`
	Date        string    `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Shared      bool      `json:"shared"`
}

// Balance summarizes shared expenses: Debtor owes Creditor AmountCents.
type Balance struct {
	Debtor      uuid.UUID           `json:"debtor"`
	Creditor    uuid.UUID           `json:"creditor"`
	AmountCents int64               `json:"amount_cents"`
	PaidCents   map[uuid.UUID]int64 `json:"paid_cents"`
}

type Habit struct {
	CoupleBase
	UserID       uuid.UUID `json:"user_id"`
	Name         string    `json:"name" validate:"required,min=1,max=120"`
	WeeklyTarget int       `json:"weekly_target" validate:"min=0,max=7"`
}

type HabitEntry struct {
	CoupleBase
	HabitID uuid.UUID `json:"habit_id" validate:"required"`
	Day     string    `json:"day" validate:"required,datetime=2006-01-02"`
	Done    bool      `json:"done"`
	Note    string    `json:"note"`
}

type MoodEntry struct {
	CoupleBase
	UserID uuid.UUID `json:"user_id"`
	Day    string    `json:"day" validate:"required,datetime=2006-01-02"`
	Mood   int       `json:"mood" validate:"required,min=1,max=5"`
	Note   string    `json:"note"`
}

type JobApplication struct {
	CoupleBase
	UserID    uuid.UUID `json:"user_id"`
	Company   string    `json:"company" validate:"required,max=200"`
	Role      string    `json:"role" validate:"required,max=200"`
	Status    string    `json:"status" validate:"omitempty,oneof=applied interview offer rejected"`
	AppliedAt string    `json:"applied_at" validate:"omitempty,datetime=2006-01-02"`
	Link      string    `json:"link" validate:"omitempty,url"`
	Notes     string    `json:"notes"`
}

func (e *Expense) SetOwner(userID uuid.UUID) {
	if e.PaidBy == uuid.Nil {
		e.PaidBy = userID
	}
}

func (h *Habit) SetOwner(userID uuid.UUID) {
	if h.UserID == uuid.Nil {
		h.UserID = userID
	}
}

func (m *MoodEntry) SetOwner(userID uuid.UUID) {
	if m.UserID == uuid.Nil {
		m.UserID = userID
	}
}

func (j *JobApplication) SetOwner(userID uuid.UUID) {
	if j.UserID == uuid.Nil {
		j.UserID = userID
	}
}
