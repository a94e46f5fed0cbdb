package models

import (
	"time"

	"github.com/google/uuid"
)

// Base carries the columns every table has.
type Base struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

func (b *Base) GetID() uuid.UUID { return b.ID }

func (b *Base) GetBase() *Base { return b }

// Prepare assigns an id and creation time to rows about to be inserted.
func (b *Base) Prepare(now time.Time) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
}

// CoupleBase is Base for rows owned by a couple.
type CoupleBase struct {
	Base
	CoupleID uuid.UUID `json:"couple_id"`
}

func (c *CoupleBase) GetCoupleID() uuid.UUID   { return c.CoupleID }
func (c *CoupleBase) SetCoupleID(id uuid.UUID) { c.CoupleID = id }

// Record is implemented by pointers to every table row type.
type Record interface {
	GetID() uuid.UUID
	GetBase() *Base
	Prepare(now time.Time)
}

// CoupleRecord is a Record scoped to a couple.
type CoupleRecord interface {
	Record
	GetCoupleID() uuid.UUID
	SetCoupleID(id uuid.UUID)
}

// Owned rows record which user created them. SetOwner leaves an owner
// that is already set alone.
type Owned interface {
	SetOwner(userID uuid.UUID)
}
