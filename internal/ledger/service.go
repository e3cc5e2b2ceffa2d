package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/terraskye/memento"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrSameAccount       = errors.New("cannot transfer to the same account")
)

// Service records ledger operations in an event store. Every operation works
// on one timeline; uuid.Nil is the real one, other ids are what-if branches.
type Service struct {
	store memento.EventStore
	now   func() time.Time
}

// NewService creates a Service on store.
func NewService(store memento.EventStore) (*Service, error) {
	if memento.IsNil(store) {
		return nil, memento.NilArgument("store")
	}
	return &Service{store: store, now: time.Now}, nil
}

// Open opens a new account for owner.
func (s *Service) Open(ctx context.Context, owner string, timeline uuid.UUID) (uuid.UUID, error) {
	id := uuid.New()
	err := s.store.Save(ctx, &AccountOpened{
		DomainEvent: memento.NewDomainEvent(memento.WithTimeline(timeline)),
		AccountID:   id,
		Owner:       owner,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("open account: %w", err)
	}
	return id, nil
}

// Deposit adds amount to an open account.
func (s *Service) Deposit(ctx context.Context, account uuid.UUID, amount int64, timeline uuid.UUID) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if _, err := s.load(ctx, account, timeline); err != nil {
		return err
	}
	return s.store.Save(ctx, &MoneyDeposited{
		DomainEvent: memento.NewDomainEvent(memento.WithTimeline(timeline)),
		AccountID:   account,
		Amount:      amount,
	})
}

// Withdraw takes amount from an account if the balance covers it.
func (s *Service) Withdraw(ctx context.Context, account uuid.UUID, amount int64, timeline uuid.UUID) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	acc, err := s.load(ctx, account, timeline)
	if err != nil {
		return err
	}
	if acc.Balance < amount {
		return fmt.Errorf("withdraw %d from %s with balance %d: %w", amount, account, acc.Balance, ErrInsufficientFunds)
	}
	return s.store.Save(ctx, &MoneyWithdrawn{
		DomainEvent: memento.NewDomainEvent(memento.WithTimeline(timeline)),
		AccountID:   account,
		Amount:      amount,
	})
}

// Transfer moves amount between two open accounts.
func (s *Service) Transfer(ctx context.Context, from, to uuid.UUID, amount int64, timeline uuid.UUID) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if from == to {
		return ErrSameAccount
	}
	source, err := s.load(ctx, from, timeline)
	if err != nil {
		return err
	}
	if _, err := s.load(ctx, to, timeline); err != nil {
		return err
	}
	if source.Balance < amount {
		return fmt.Errorf("transfer %d from %s with balance %d: %w", amount, from, source.Balance, ErrInsufficientFunds)
	}
	return s.store.Save(ctx, &MoneyTransferred{
		DomainEvent:          memento.NewDomainEvent(memento.WithTimeline(timeline)),
		SourceAccountID:      from,
		DestinationAccountID: to,
		Amount:               amount,
	})
}

// Account rebuilds an account as of pointInTime on the given timeline by
// replaying its history in save order.
func (s *Service) Account(ctx context.Context, id uuid.UUID, pointInTime time.Time, timeline uuid.UUID) (*Account, error) {
	acc := newAccount(id)

	it, err := s.store.RetrieveEvents(ctx, id, pointInTime, AccountMappings(id), timeline)
	if err != nil {
		return nil, fmt.Errorf("retrieve account %s: %w", id, err)
	}
	if _, err := memento.Replay(ctx, it, acc.apply()); err != nil {
		return nil, fmt.Errorf("replay account %s: %w", id, err)
	}
	return acc, nil
}

// Owners returns the owner of every account opened on the timeline.
func (s *Service) Owners(ctx context.Context, timeline uuid.UUID) (map[uuid.UUID]string, error) {
	it, err := memento.Find(ctx, s.store, func(e *AccountOpened) bool {
		return e.TimelineID() == timeline
	})
	if err != nil {
		return nil, err
	}
	owners := make(map[uuid.UUID]string)
	for it.Next(ctx) {
		owners[it.Value().AccountID] = it.Value().Owner
	}
	return owners, it.Err()
}

func (s *Service) load(ctx context.Context, id uuid.UUID, timeline uuid.UUID) (*Account, error) {
	acc, err := s.Account(ctx, id, s.now(), timeline)
	if err != nil {
		return nil, err
	}
	if !acc.Opened {
		return nil, fmt.Errorf("%s: %w", id, ErrAccountNotFound)
	}
	return acc, nil
}
