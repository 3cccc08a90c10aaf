package exceptions

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestUnrecoverable(t *testing.T) {
	t.Run("matches sentinel", func(t *testing.T) {
		err := Unrecoverable("no pojo for key %s", "abc")
		assert.True(t, errors.Is(err, ErrUnrecoverable))
		assert.True(t, IsUnrecoverable(err))
		assert.Equal(t, "unrecoverable: no pojo for key abc", err.Error())
	})

	t.Run("survives wrapping", func(t *testing.T) {
		err := fmt.Errorf("reconstruct: %w", Unrecoverable("boom"))
		assert.True(t, IsUnrecoverable(err))
	})

	t.Run("keeps cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := UnrecoverableWrap(cause, "fetch %s", "x")
		assert.True(t, errors.Is(err, cause))
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("plain errors are recoverable", func(t *testing.T) {
		assert.False(t, IsUnrecoverable(errors.New("nope")))
	})
}

func TestValidationFailures(t *testing.T) {
	t.Run("empty aggregate is not an error", func(t *testing.T) {
		vf := NewValidationFailures()
		assert.False(t, vf.HasFailures())
		assert.NoError(t, vf.AsError())
		assert.Equal(t, 0, vf.Count())
	})

	t.Run("single failure message", func(t *testing.T) {
		vf := NewValidationFailures()
		vf.Add("petclinic.Owner#lastName", "orphaned support function %q", "hideLastNam")
		err := vf.AsError()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMetamodelInvalid))
		assert.Equal(t, `metamodel validation failed: petclinic.Owner#lastName: orphaned support function "hideLastNam"`, err.Error())
	})

	t.Run("failures are sorted and merged", func(t *testing.T) {
		a := NewValidationFailures()
		a.Add("b.Type", "second")
		b := NewValidationFailures()
		b.Add("a.Type", "first")
		a.Merge(b)
		a.Merge(nil)

		failures := a.Failures()
		require.Len(t, failures, 2)
		assert.Equal(t, "a.Type", failures[0].Origin)
		assert.Contains(t, a.Error(), "metamodel validation failed (2)")
	})
}

func TestAssert(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	SetAssertionLogger(zap.New(core))
	defer SetAssertionLogger(nil)

	t.Run("passing assertion is silent", func(t *testing.T) {
		assert.NotPanics(t, func() { Assert(true, "never") })
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("failing assertion logs then panics", func(t *testing.T) {
		defer func() {
			r := recover()
			require.NotNil(t, r)
			ae, ok := r.(*AssertionError)
			require.True(t, ok)
			assert.Equal(t, "spec must be loaded: petclinic.Owner", ae.Message)
			assert.Equal(t, 1, logs.FilterMessage("assertion failed").Len())
		}()
		Assert(false, "spec must be loaded: %s", "petclinic.Owner")
	})

	t.Run("typed nil pointer is nil", func(t *testing.T) {
		var p *int
		assert.Panics(t, func() { AssertNotNil(p, "pointer") })
		assert.NotPanics(t, func() { AssertNotNil(1, "int") })
	})

	t.Run("equals", func(t *testing.T) {
		assert.Panics(t, func() { AssertEquals("a", "b", "name") })
		assert.NotPanics(t, func() { AssertEquals(3, 3, "count") })
	})
}
