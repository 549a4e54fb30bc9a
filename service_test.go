package modgraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter interface{ Greet() string }

type englishGreeter struct{ name string }

func (g *englishGreeter) Greet() string { return "hello " + g.name }

func TestServiceRegistry_RegisterAndGet(t *testing.T) {
	r := NewServiceRegistry(nil)
	svc := &englishGreeter{name: "world"}
	require.NoError(t, r.Register("greeter", svc))
	require.NoError(t, r.Register("port", 8080))

	err := r.Register("greeter", svc)
	assert.ErrorIs(t, err, ErrServiceAlreadyRegistered)

	var asInterface greeter
	require.NoError(t, r.Get("greeter", &asInterface))
	assert.Equal(t, "hello world", asInterface.Greet())

	var asPointer *englishGreeter
	require.NoError(t, r.Get("greeter", &asPointer))
	assert.Same(t, svc, asPointer)

	var asValue englishGreeter
	require.NoError(t, r.Get("greeter", &asValue))
	assert.Equal(t, "world", asValue.name)

	var port int
	require.NoError(t, r.Get("port", &port))
	assert.Equal(t, 8080, port)

	assert.True(t, r.Has("port"))
	assert.False(t, r.Has("missing"))
	assert.Equal(t, []string{"greeter", "port"}, r.Names())
}

func TestServiceRegistry_GetErrors(t *testing.T) {
	r := NewServiceRegistry(nil)
	require.NoError(t, r.Register("port", 8080))
	require.NoError(t, r.Register("nothing", nil))

	var s string
	assert.ErrorIs(t, r.Get("missing", &s), ErrServiceNotFound)
	assert.ErrorIs(t, r.Get("port", s), ErrTargetNotPointer)
	assert.ErrorIs(t, r.Get("port", &s), ErrServiceIncompatible)
	assert.ErrorIs(t, r.Get("nothing", &s), ErrServiceIncompatible)
}

func TestGetService(t *testing.T) {
	r := NewServiceRegistry(nil)
	require.NoError(t, r.Register("greeter", &englishGreeter{name: "gophers"}))

	g, err := GetService[greeter](r, "greeter")
	require.NoError(t, err)
	assert.Equal(t, "hello gophers", g.Greet())

	_, err = GetService[int](r, "greeter")
	assert.True(t, errors.Is(err, ErrServiceIncompatible))
}
