package service

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"organizer/internal/models"
	"organizer/internal/store"
)

type Expenses struct {
	*Resource[models.Expense, *models.Expense]
	profiles *Profiles
}

func NewExpenses(backend store.Backend, profiles *Profiles) *Expenses {
	return &Expenses{
		Resource: NewResource[models.Expense](backend, store.TableExpenses, "date"),
		profiles: profiles,
	}
}

// Balance settles the couple's shared expenses.
func (s *Expenses) Balance(ctx context.Context, actor Actor) (models.Balance, error) {
	expenses, err := s.List(ctx, actor)
	if err != nil {
		return models.Balance{}, err
	}
	members, err := s.profiles.Members(ctx, actor.CoupleID)
	if err != nil {
		return models.Balance{}, err
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	return SettleShared(ids, expenses), nil
}

// SettleShared splits shared expenses evenly between two people. members
// names the couple; payers not among them are added. With fewer than two
// people nobody owes anything. Odd cents round in favor of the debtor.
func SettleShared(members []uuid.UUID, expenses []models.Expense) models.Balance {
	paid := make(map[uuid.UUID]int64)
	for _, id := range members {
		paid[id] = 0
	}
	for _, e := range expenses {
		if e.Shared && e.PaidBy != uuid.Nil {
			paid[e.PaidBy] += e.AmountCents
		}
	}

	balance := models.Balance{PaidCents: paid}
	people := make([]uuid.UUID, 0, len(paid))
	for id := range paid {
		people = append(people, id)
	}
	if len(people) != 2 {
		return balance
	}
	sort.Slice(people, func(i, j int) bool { return people[i].String() < people[j].String() })

	a, b := people[0], people[1]
	diff := paid[a] - paid[b]
	switch {
	case diff > 0:
		balance.Debtor, balance.Creditor, balance.AmountCents = b, a, diff/2
	case diff < 0:
		balance.Debtor, balance.Creditor, balance.AmountCents = a, b, -diff/2
	}
	return balance
}
