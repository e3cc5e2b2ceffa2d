// Package ledger is a small bank-account domain built on memento. It shows
// how events are declared and mapped to aggregates, and how an aggregate is
// rebuilt from its history.
package ledger

import (
	"sync"

	"github.com/google/uuid"

	"github.com/terraskye/memento"
)

// AccountOpened starts the history of an account.
type AccountOpened struct {
	memento.DomainEvent
	AccountID uuid.UUID `json:"accountId"`
	Owner     string    `json:"owner"`
}

func (*AccountOpened) EventType() string { return "ledger.account_opened" }

// MoneyDeposited adds Amount to an account.
type MoneyDeposited struct {
	memento.DomainEvent
	AccountID uuid.UUID `json:"accountId"`
	Amount    int64     `json:"amount"`
}

func (*MoneyDeposited) EventType() string { return "ledger.money_deposited" }

// MoneyWithdrawn takes Amount from an account.
type MoneyWithdrawn struct {
	memento.DomainEvent
	AccountID uuid.UUID `json:"accountId"`
	Amount    int64     `json:"amount"`
}

func (*MoneyWithdrawn) EventType() string { return "ledger.money_withdrawn" }

// MoneyTransferred moves Amount from one account to another.
type MoneyTransferred struct {
	memento.DomainEvent
	SourceAccountID      uuid.UUID `json:"sourceAccountId"`
	DestinationAccountID uuid.UUID `json:"destinationAccountId"`
	Amount               int64     `json:"amount"`
}

func (*MoneyTransferred) EventType() string { return "ledger.money_transferred" }

var registerOnce sync.Once

// RegisterEvents makes the ledger events decodable by the memento codec.
func RegisterEvents() {
	registerOnce.Do(func() {
		memento.RegisterEvent(func() memento.Event { return &AccountOpened{} })
		memento.RegisterEvent(func() memento.Event { return &MoneyDeposited{} })
		memento.RegisterEvent(func() memento.Event { return &MoneyWithdrawn{} })
		memento.RegisterEvent(func() memento.Event { return &MoneyTransferred{} })
	})
}

// AccountMappings maps the ledger events to the account id. A transfer
// belongs to both of its accounts, so its mapping reports id when id is the
// receiving account and the sending account otherwise. One query then yields
// the whole history of id in save order.
func AccountMappings(id uuid.UUID) []memento.EventMapping {
	return []memento.EventMapping{
		memento.MustMapEventField[*AccountOpened]("AccountID"),
		memento.MustMapEventField[*MoneyDeposited]("AccountID"),
		memento.MustMapEventField[*MoneyWithdrawn]("AccountID"),
		memento.MapEvent(func(e *MoneyTransferred) uuid.UUID {
			if e.DestinationAccountID == id {
				return id
			}
			return e.SourceAccountID
		}),
	}
}
