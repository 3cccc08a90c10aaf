package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/causeway-lang/causeway/internal/metamodel/feature"
)

func TestBus(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))
	var order []string

	bus.Subscribe("owner.updateName", 10, func(e *Event) error {
		order = append(order, "late")
		return nil
	})
	bus.Subscribe("owner.updateName", 0, func(e *Event) error {
		order = append(order, "early")
		if e.Phase == PhaseDisable {
			e.Disable("locked")
		}
		return nil
	})
	bus.Subscribe("*", 0, func(e *Event) error {
		order = append(order, "wildcard")
		return nil
	})

	id := feature.MemberIdentifier("petclinic.Owner", "updateName")

	t.Run("delivers in priority order", func(t *testing.T) {
		order = nil
		e := &Event{Name: "owner.updateName", Phase: PhaseExecuted, Identifier: id}
		require.NoError(t, bus.Post(e))
		assert.Equal(t, []string{"early", "late", "wildcard"}, order)
	})

	t.Run("check phase stops at first veto", func(t *testing.T) {
		order = nil
		e := &Event{Name: "owner.updateName", Phase: PhaseDisable, Identifier: id}
		require.NoError(t, bus.Post(e))
		assert.Equal(t, []string{"early"}, order)
		assert.Equal(t, "locked", e.DisabledReason())
	})

	t.Run("subscriber error stops delivery", func(t *testing.T) {
		bus.Subscribe("failing", 0, func(e *Event) error { return errors.New("boom") })
		err := bus.Post(&Event{Name: "failing", Phase: PhaseExecuting})
		assert.ErrorContains(t, err, "boom")
	})

	assert.True(t, bus.HasSubscribers("anything"))
}
