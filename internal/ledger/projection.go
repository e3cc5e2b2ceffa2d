package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/terraskye/memento"
)

// Balances is a read model of default-timeline balances kept up to date by
// dispatched events. What-if timelines are ignored.
type Balances struct {
	mu       sync.RWMutex
	balances map[uuid.UUID]int64
}

// NewBalances creates an empty projection.
func NewBalances() *Balances {
	return &Balances{balances: make(map[uuid.UUID]int64)}
}

// Handler returns the event handler feeding the projection.
func (b *Balances) Handler() *memento.EventGroupProcessor {
	return memento.NewEventGroupProcessor(
		memento.OnEvent(b.onOpened),
		memento.OnEvent(b.onDeposited),
		memento.OnEvent(b.onWithdrawn),
		memento.OnEvent(b.onTransferred),
	)
}

// Balance returns the projected balance of account.
func (b *Balances) Balance(account uuid.UUID) (int64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.balances[account]
	return v, ok
}

func (b *Balances) add(ev memento.Event, account uuid.UUID, delta int64) {
	if ev.TimelineID() != uuid.Nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] += delta
}

func (b *Balances) onOpened(_ context.Context, ev *AccountOpened) error {
	b.add(ev, ev.AccountID, 0)
	return nil
}

func (b *Balances) onDeposited(_ context.Context, ev *MoneyDeposited) error {
	b.add(ev, ev.AccountID, ev.Amount)
	return nil
}

func (b *Balances) onWithdrawn(_ context.Context, ev *MoneyWithdrawn) error {
	b.add(ev, ev.AccountID, -ev.Amount)
	return nil
}

func (b *Balances) onTransferred(_ context.Context, ev *MoneyTransferred) error {
	b.add(ev, ev.SourceAccountID, -ev.Amount)
	b.add(ev, ev.DestinationAccountID, ev.Amount)
	return nil
}
