package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceRegistryResolvesImmediately(t *testing.T) {
	registry := NewReferenceRegistry()
	registry.Register("a", 1)

	var got any
	resolved := registry.ResolveOnceReady("a", func(value any) { got = value })
	require.True(t, resolved)
	assert.Equal(t, 1, got)
	assert.Empty(t, registry.UnresolvedNames())
}

func TestReferenceRegistryFiresPendingInOrderOnce(t *testing.T) {
	registry := NewReferenceRegistry()
	var fired []string
	require.False(t, registry.ResolveOnceReady("b", func(value any) { fired = append(fired, "first") }))
	require.False(t, registry.ResolveOnceReady("b", func(value any) { fired = append(fired, "second") }))
	require.False(t, registry.ResolveOnceReady("a", func(value any) { fired = append(fired, "other") }))
	assert.Equal(t, []string{"a", "b"}, registry.UnresolvedNames())

	registry.Register("b", "x")
	assert.Equal(t, []string{"first", "second"}, fired)
	assert.Equal(t, []string{"a"}, registry.UnresolvedNames())

	registry.Register("b", "y")
	assert.Equal(t, []string{"first", "second"}, fired, "re-registering must not fire callbacks again")
	value, ok := registry.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, "y", value)
}

func TestReferenceRegistryLookupMissing(t *testing.T) {
	_, ok := NewReferenceRegistry().Lookup("missing")
	assert.False(t, ok)
}
