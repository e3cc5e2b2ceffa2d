package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/terraskye/memento"
)

// Account is the state of one account rebuilt from its events.
type Account struct {
	ID      uuid.UUID
	Owner   string
	Balance int64
	Opened  bool

	// Version counts the events applied.
	Version int
}

func newAccount(id uuid.UUID) *Account {
	return &Account{ID: id}
}

func (a *Account) onOpened(_ context.Context, ev *AccountOpened) {
	a.Opened = true
	a.Owner = ev.Owner
}

func (a *Account) onDeposited(_ context.Context, ev *MoneyDeposited) {
	a.Balance += ev.Amount
}

func (a *Account) onWithdrawn(_ context.Context, ev *MoneyWithdrawn) {
	a.Balance -= ev.Amount
}

func (a *Account) onTransferred(_ context.Context, ev *MoneyTransferred) {
	if ev.SourceAccountID == a.ID {
		a.Balance -= ev.Amount
	}
	if ev.DestinationAccountID == a.ID {
		a.Balance += ev.Amount
	}
}

func (a *Account) apply() func(context.Context, memento.Event) {
	hydrate := memento.Hydrate(
		memento.NewHydrateHandler(a.onOpened),
		memento.NewHydrateHandler(a.onDeposited),
		memento.NewHydrateHandler(a.onWithdrawn),
		memento.NewHydrateHandler(a.onTransferred),
	)
	return func(ctx context.Context, ev memento.Event) {
		hydrate(ctx, ev)
		a.Version++
	}
}
