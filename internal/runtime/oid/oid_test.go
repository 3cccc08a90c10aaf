package oid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringAndParse(t *testing.T) {
	for _, o := range []Oid{
		NewPersistent("petclinic.Owner", "42"),
		NewPersistent("petclinic.Owner", "a:b@c/d").WithVersion("3"),
		NewPersistent("petclinic.Owner", "alice@example.com"),
		NewPersistent("petclinic.Owner", "alice@example.com").WithVersion("v@2"),
		NewTransient("petclinic.Pet"),
		NewValue("petclinic.Address"),
		ForService("petclinic.Owners"),
	} {
		parsed, err := Parse(o.String())
		require.NoError(t, err, o.String())
		assert.Equal(t, o, parsed)
	}
	assert.Equal(t, "P:petclinic.Owner:42@7", NewPersistent("petclinic.Owner", "42").WithVersion("7").String())
	assert.Equal(t, "P:petclinic.Owner:alice%40example.com@1", NewPersistent("petclinic.Owner", "alice@example.com").WithVersion("1").String())
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "P", "P:petclinic.Owner", "P::42", "PX:petclinic.Owner:42", "X:petclinic.Owner:42", "P:petclinic.Owner:%zz", "P:petclinic.Owner:@1"} {
		_, err := Parse(s)
		assert.ErrorIs(t, err, ErrInvalid, s)
	}
}

func TestEqualIgnoresVersion(t *testing.T) {
	a := NewPersistent("petclinic.Owner", "42").WithVersion("1")
	b := NewPersistent("petclinic.Owner", "42").WithVersion("2")
	assert.True(t, a.Equal(b))
	assert.NotEqual(t, a, b)

	assert.False(t, a.Equal(NewPersistent("petclinic.Vet", "42")))
	assert.False(t, a.Equal(Oid{State: Transient, LogicalType: "petclinic.Owner", Key: "42"}))
}

func TestRandomKeys(t *testing.T) {
	a, b := NewTransient("petclinic.Pet"), NewTransient("petclinic.Pet")
	assert.False(t, a.Equal(b))
	assert.Equal(t, Transient, a.State)
	assert.False(t, a.IsPersistent())
	assert.True(t, (Oid{}).IsZero())
	assert.Equal(t, "SERVICE", ForService("x").State.String())
}
