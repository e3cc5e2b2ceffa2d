package memento_test

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraskye/memento"
	"github.com/terraskye/memento/fixtures"
)

type valueEvent struct {
	memento.DomainEvent
	OwnerID uuid.UUID
	Label   string
	hidden  uuid.UUID
}

func TestMapEventField(t *testing.T) {
	account := uuid.New()
	ev := fixtures.NewEvent().Withdrawal(account, 10)

	m, err := memento.MapEventField[*fixtures.WithdrawalEvent]("CurrentAccountID")
	require.NoError(t, err)
	assert.Equal(t, "CurrentAccountID", m.AggregateIdPropertyName)

	id, err := m.AggregateID(ev)
	require.NoError(t, err)
	assert.Equal(t, account, id)
}

func TestMapEventField_ValueType(t *testing.T) {
	owner := uuid.New()
	ev := valueEvent{DomainEvent: memento.NewDomainEvent(), OwnerID: owner}

	m, err := memento.MapEventField[valueEvent]("OwnerID")
	require.NoError(t, err)

	id, err := m.AggregateID(ev)
	require.NoError(t, err)
	assert.Equal(t, owner, id)

	// the pointer type is a different event type
	_, err = m.AggregateID(&ev)
	var mappingErr *memento.MappingError
	assert.ErrorAs(t, err, &mappingErr)
}

func TestMapEventField_Errors(t *testing.T) {
	tests := []struct {
		name    string
		build   func() error
		wantErr error
	}{
		{
			name: "missing field",
			build: func() error {
				_, err := memento.MapEventField[*fixtures.WithdrawalEvent]("AccountID")
				return err
			},
			wantErr: memento.ErrUnknownField,
		},
		{
			name: "unexported field",
			build: func() error {
				_, err := memento.MapEventField[valueEvent]("hidden")
				return err
			},
			wantErr: memento.ErrUnknownField,
		},
		{
			name: "wrong field type",
			build: func() error {
				_, err := memento.MapEventField[valueEvent]("Label")
				return err
			},
			wantErr: memento.ErrFieldType,
		},
		{
			name: "amount is not an id",
			build: func() error {
				_, err := memento.MapEventField[*fixtures.DepositEvent]("Amount")
				return err
			},
			wantErr: memento.ErrFieldType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build()

			var mappingErr *memento.MappingError
			require.ErrorAs(t, err, &mappingErr)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMustMapEventField_Panics(t *testing.T) {
	assert.Panics(t, func() {
		memento.MustMapEventField[*fixtures.DepositEvent]("Nope")
	})
}

func TestMapEvent(t *testing.T) {
	source, destination := uuid.New(), uuid.New()
	ev := fixtures.NewEvent().Transfer(source, destination, 1)

	m := memento.MapEvent(func(e *fixtures.MoneyTransferredEvent) uuid.UUID { return e.DestinationAccountID })

	id, err := m.AggregateID(ev)
	require.NoError(t, err)
	assert.Equal(t, destination, id)

	_, err = m.AggregateID(fixtures.NewEvent().Deposit(source, 1))
	assert.Error(t, err)
}

func TestNewMappingTable(t *testing.T) {
	table, err := memento.NewMappingTable(fixtures.AccountMappings())
	require.NoError(t, err)
	assert.Len(t, table, 2)

	_, ok := table.Lookup(fixtures.NewEvent().Withdrawal(uuid.New(), 1))
	assert.True(t, ok)
	_, ok = table.Lookup(fixtures.NewEvent().Deposit(uuid.New(), 1))
	assert.False(t, ok)
}

func TestEventMapping_DeclaredByFieldName(t *testing.T) {
	account := uuid.New()
	m := memento.EventMapping{
		EventType:               reflect.TypeFor[*fixtures.WithdrawalEvent](),
		AggregateIdPropertyName: "CurrentAccountID",
	}

	id, err := m.AggregateID(fixtures.NewEvent().Withdrawal(account, 1))
	require.NoError(t, err)
	assert.Equal(t, account, id)

	table, err := memento.NewMappingTable([]memento.EventMapping{m})
	require.NoError(t, err)
	resolved, ok := table.Lookup(fixtures.NewEvent().Withdrawal(account, 1))
	require.True(t, ok)
	id, err = resolved.AggregateID(fixtures.NewEvent().Withdrawal(account, 1))
	require.NoError(t, err)
	assert.Equal(t, account, id)
}

func TestNewMappingTable_FieldNameErrors(t *testing.T) {
	tests := []struct {
		name    string
		mapping memento.EventMapping
		wantErr error
	}{
		{
			name:    "unknown field",
			mapping: memento.EventMapping{EventType: reflect.TypeFor[*fixtures.WithdrawalEvent](), AggregateIdPropertyName: "AccountID"},
			wantErr: memento.ErrUnknownField,
		},
		{
			name:    "field is not an id",
			mapping: memento.EventMapping{EventType: reflect.TypeFor[*fixtures.DepositEvent](), AggregateIdPropertyName: "Amount"},
			wantErr: memento.ErrFieldType,
		},
		{
			name:    "no field name",
			mapping: memento.EventMapping{EventType: reflect.TypeFor[*fixtures.DepositEvent]()},
			wantErr: memento.ErrInvalidMapping,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := memento.NewMappingTable([]memento.EventMapping{tt.mapping})

			var mappingErr *memento.MappingError
			require.ErrorAs(t, err, &mappingErr)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewMappingTable_Errors(t *testing.T) {
	_, err := memento.NewMappingTable([]memento.EventMapping{{}})
	assert.ErrorIs(t, err, memento.ErrInvalidMapping)

	dup := append(fixtures.AccountMappings(), fixtures.AccountMappings()[0])
	_, err = memento.NewMappingTable(dup)
	assert.ErrorIs(t, err, memento.ErrDuplicateMapping)
}

func TestMappingError_Message(t *testing.T) {
	_, err := memento.MapEventField[*fixtures.DepositEvent]("Nope")

	assert.EqualError(t, err, `event mapping for *fixtures.DepositEvent field "Nope": no such exported field`)
}
