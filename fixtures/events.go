package fixtures

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/terraskye/memento"
)

// WithdrawalEvent takes Amount from an account.
type WithdrawalEvent struct {
	memento.DomainEvent
	CurrentAccountID uuid.UUID
	Amount           int64
}

// DepositEvent adds Amount to an account.
type DepositEvent struct {
	memento.DomainEvent
	CurrentAccountID uuid.UUID
	Amount           int64
}

// MoneyTransferredEvent moves Amount between two accounts.
type MoneyTransferredEvent struct {
	memento.DomainEvent
	SourceAccountID      uuid.UUID
	DestinationAccountID uuid.UUID
	Amount               int64
}

var registerOnce sync.Once

// RegisterEvents registers the fixture events with the codec registry. It is
// safe to call more than once.
func RegisterEvents() {
	registerOnce.Do(func() {
		memento.RegisterEvent(func() memento.Event { return &WithdrawalEvent{} })
		memento.RegisterEvent(func() memento.Event { return &DepositEvent{} })
		memento.RegisterEvent(func() memento.Event { return &MoneyTransferredEvent{} })
	})
}

// EventBuilder provides a fluent API for the base of fixture events.
type EventBuilder struct {
	opts []memento.EventOption
}

// NewEvent creates an EventBuilder on the default timeline at the current time.
func NewEvent() *EventBuilder {
	return &EventBuilder{}
}

// OnTimeline places the event on the given timeline.
func (b *EventBuilder) OnTimeline(id uuid.UUID) *EventBuilder {
	b.opts = append(b.opts, memento.WithTimeline(id))
	return b
}

// At sets the event timestamp.
func (b *EventBuilder) At(t time.Time) *EventBuilder {
	b.opts = append(b.opts, memento.WithTimeStamp(t))
	return b
}

// Withdrawal builds a WithdrawalEvent.
func (b *EventBuilder) Withdrawal(account uuid.UUID, amount int64) *WithdrawalEvent {
	return &WithdrawalEvent{
		DomainEvent:      memento.NewDomainEvent(b.opts...),
		CurrentAccountID: account,
		Amount:           amount,
	}
}

// Deposit builds a DepositEvent.
func (b *EventBuilder) Deposit(account uuid.UUID, amount int64) *DepositEvent {
	return &DepositEvent{
		DomainEvent:      memento.NewDomainEvent(b.opts...),
		CurrentAccountID: account,
		Amount:           amount,
	}
}

// Transfer builds a MoneyTransferredEvent.
func (b *EventBuilder) Transfer(source, destination uuid.UUID, amount int64) *MoneyTransferredEvent {
	return &MoneyTransferredEvent{
		DomainEvent:          memento.NewDomainEvent(b.opts...),
		SourceAccountID:      source,
		DestinationAccountID: destination,
		Amount:               amount,
	}
}

// AccountMappings maps withdrawals to the current account and transfers to
// the source account. Deposits are deliberately left out.
func AccountMappings() []memento.EventMapping {
	return []memento.EventMapping{
		memento.MustMapEventField[*WithdrawalEvent]("CurrentAccountID"),
		memento.MustMapEventField[*MoneyTransferredEvent]("SourceAccountID"),
	}
}
