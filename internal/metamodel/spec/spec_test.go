package spec_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/causeway-lang/causeway/internal/metamodel/consent"
	"github.com/causeway-lang/causeway/internal/metamodel/events"
	"github.com/causeway-lang/causeway/internal/metamodel/object"
	"github.com/causeway-lang/causeway/internal/metamodel/progmodel"
	"github.com/causeway-lang/causeway/internal/metamodel/schema"
	"github.com/causeway-lang/causeway/internal/metamodel/spec"
)

type account struct {
	Code    string
	Balance int
	Notes   string
	Owner   string
	History []string
}

func (a *account) deposit(amount int) (int, error) {
	if amount > 1000 {
		return 0, errors.New("limit exceeded")
	}
	a.Balance += amount
	a.History = append(a.History, "deposit")
	return a.Balance, nil
}

type managed struct {
	pojo  interface{}
	state object.State
}

func (m managed) Pojo() interface{}   { return m.pojo }
func (m managed) State() object.State { return m.state }

func newAccountSpec(t *testing.T, bus *events.Bus) *spec.ObjectSpecification {
	t.Helper()
	s, err := schema.For[account]("bank.Account", schema.SortViewModel).
		Property("Code", schema.Hidden{When: consent.WhenUntilPersisted}, schema.MemberOrder{Sequence: "2"}).
		Property("Balance", schema.Disabled{Reason: "Use deposit"}, schema.MemberOrder{Sequence: "1"}).
		Property("Notes", schema.Optional{}, schema.MaxLength{Length: 5}).
		Property("Owner", schema.RequiresRole{Roles: []string{"teller"}}).
		Collection("History").
		Action("deposit", (*account).deposit, schema.DomainEvent{Name: "deposit"}).
		Parameter("deposit", 0, "amount").
		Support("validate0Deposit", func(a *account, amount int) string {
			if amount <= 0 {
				return "Must be positive"
			}
			return ""
		}).
		Support("validateDeposit", func(a *account, amount int) string {
			if amount == 13 {
				return "Unlucky"
			}
			return ""
		}).
		Build()
	require.NoError(t, err)

	result := spec.New(s, nil)
	failures := progmodel.Default(zaptest.NewLogger(t), bus).Process(s, result)
	require.False(t, failures.HasFailures(), "%v", failures)
	return result
}

var teller = spec.UserInteraction(consent.Actor{User: "sven", Roles: []string{"teller"}})

func TestHiddenUntilPersisted(t *testing.T) {
	s := newAccountSpec(t, nil)
	code, ok := s.Property("code")
	require.True(t, ok)

	transient := managed{pojo: &account{}, state: object.StateTransient}
	persistent := managed{pojo: &account{}, state: object.StatePersistent}

	assert.Equal(t, "Hidden until persisted", code.HiddenReason(transient, teller))
	assert.True(t, code.IsVisible(transient, teller).IsVetoed())
	assert.Equal(t, "", code.HiddenReason(persistent, teller))
	assert.True(t, code.IsVisible(persistent, teller).IsAllowed())
}

func TestMemberOrder(t *testing.T) {
	s := newAccountSpec(t, nil)

	var ids []string
	for _, p := range s.Properties() {
		ids = append(ids, p.ID())
	}
	assert.Equal(t, []string{"balance", "code", "notes", "owner"}, ids)

	var members []string
	for _, m := range s.Members() {
		members = append(members, m.ID())
	}
	assert.Equal(t, []string{"balance", "code", "notes", "owner", "history", "deposit"}, members)
}

func TestModify(t *testing.T) {
	s := newAccountSpec(t, nil)
	pojo := &account{}
	target := managed{pojo: pojo, state: object.StatePersistent}

	notes, _ := s.Property("notes")
	err := notes.Modify(target, "far too long", teller)
	require.Error(t, err)
	assert.True(t, errors.Is(err, spec.ErrVetoed))
	var veto *spec.VetoError
	require.True(t, errors.As(err, &veto))
	assert.Equal(t, "Proposed value is too long (12 characters, maximum is 5)", veto.Consent.Reason())

	require.NoError(t, notes.Modify(target, "short", teller))
	assert.Equal(t, "short", pojo.Notes)
	assert.Equal(t, "short", notes.Get(target))

	balance, _ := s.Property("balance")
	err = balance.Modify(target, 10, teller)
	assert.True(t, errors.Is(err, spec.ErrVetoed))
	assert.Equal(t, "Use deposit", balance.DisabledReason(target, teller))

	require.NoError(t, balance.Set(target, 10))
	assert.Equal(t, 10, pojo.Balance)
}

func TestAuthorization(t *testing.T) {
	s := newAccountSpec(t, nil)
	owner, _ := s.Property("owner")
	target := managed{pojo: &account{}, state: object.StatePersistent}
	guest := spec.UserInteraction(consent.Actor{User: "guest"})

	assert.Equal(t, "Not authorized to view", owner.HiddenReason(target, guest))
	assert.Equal(t, "", owner.HiddenReason(target, teller))
	assert.Equal(t, "", owner.HiddenReason(target, spec.FrameworkInteraction))
}

func TestArgumentsValidity(t *testing.T) {
	s := newAccountSpec(t, nil)
	deposit, ok := s.Action("deposit")
	require.True(t, ok)
	target := managed{pojo: &account{}, state: object.StatePersistent}

	set := deposit.ArgumentsValidity(target, []interface{}{0}, teller)
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.IsVetoed())
	assert.Equal(t, "Must be positive", set.CreateConsent().Reason())

	c := deposit.IsProposedArgumentSetValid(target, []interface{}{13}, teller)
	assert.True(t, c.IsVetoed())
	assert.Equal(t, "Unlucky", c.Reason())

	assert.True(t, deposit.IsProposedArgumentSetValid(target, []interface{}{20}, teller).IsAllowed())

	param, _ := deposit.Parameter(0)
	assert.Equal(t, "Amount", param.Name())
	assert.Equal(t, "Must be positive", param.IsValid(target, -1, teller).Reason())
}

func TestExecutePostsDomainEvents(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t))
	var phases []events.Phase
	bus.Subscribe("deposit", 0, func(e *events.Event) error {
		phases = append(phases, e.Phase)
		return nil
	})

	s := newAccountSpec(t, bus)
	deposit, _ := s.Action("deposit")
	pojo := &account{Balance: 5}
	target := managed{pojo: pojo, state: object.StatePersistent}

	result, err := deposit.Execute(target, []interface{}{20}, teller)
	require.NoError(t, err)
	assert.Equal(t, 25, result)
	assert.Equal(t, []events.Phase{
		events.PhaseHide, events.PhaseDisable, events.PhaseValidate, events.PhaseExecuting, events.PhaseExecuted,
	}, phases)

	history, _ := s.Collection("history")
	assert.Equal(t, []interface{}{"deposit"}, history.Elements(target))

	_, err = deposit.Execute(target, []interface{}{5000}, teller)
	assert.EqualError(t, err, "limit exceeded")
}

func TestSubscriberHidesAction(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t))
	bus.Subscribe("deposit", 0, func(e *events.Event) error {
		if e.Phase == events.PhaseHide {
			e.Hide()
		}
		return nil
	})

	s := newAccountSpec(t, bus)
	deposit, _ := s.Action("deposit")
	target := managed{pojo: &account{}, state: object.StatePersistent}

	assert.Equal(t, "Hidden by subscriber", deposit.HiddenReason(target, teller))
	_, err := deposit.Execute(target, []interface{}{20}, teller)
	assert.True(t, errors.Is(err, spec.ErrVetoed))
}

func TestSpecificationBasics(t *testing.T) {
	s := newAccountSpec(t, nil)

	assert.Equal(t, "bank.Account", s.LogicalTypeName())
	assert.Equal(t, schema.SortViewModel, s.BeanSort())
	assert.Equal(t, "Untitled account", s.Title(managed{pojo: &account{}}))
	assert.True(t, s.IsInstance(&account{}))
	assert.False(t, s.IsInstance(account{}))
	assert.IsType(t, &account{}, s.NewInstance())
	assert.Len(t, s.Holders(), 1+6+1)
	assert.Equal(t, "ObjectSpecification[bank.Account]", s.String())

	_, ok := s.Member("missing")
	assert.False(t, ok)
	_, ok = s.Property("deposit")
	assert.False(t, ok)
}

type savings struct {
	account
	Rate int
}

func TestIsOfType(t *testing.T) {
	parent := newAccountSpec(t, nil)
	s, err := schema.For[savings]("bank.Savings", schema.SortViewModel).Property("Rate").Build()
	require.NoError(t, err)
	child := spec.New(s, parent)

	assert.True(t, child.IsOfType(parent))
	assert.True(t, child.IsOfType(child))
	assert.False(t, parent.IsOfType(child))
	assert.Same(t, parent, child.Superclass())
}
