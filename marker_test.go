package loom_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomdi/loom"
)

func TestNewMarker_Defaults(t *testing.T) {
	t.Parallel()

	db := loom.Func("database", func() *Database { return &Database{} })

	m := loom.NewMarker(db)
	assert.Same(t, db, m.Provider())
	assert.True(t, m.UseCache())
	assert.NotEqual(t, uuid.Nil, m.ID())
	assert.Nil(t, m.StaticArgs())

	other := loom.NewMarker(db)
	assert.NotEqual(t, m.ID(), other.ID(), "every marker carries its own identity")
}

func TestNewMarker_NoCache(t *testing.T) {
	t.Parallel()

	m := loom.NewMarker(nil, loom.NoCache())
	assert.False(t, m.UseCache())
	assert.Nil(t, m.Provider())
}

func TestNewMarker_StaticArgsIsolated(t *testing.T) {
	t.Parallel()

	src := map[string]any{"name": "alice"}
	m := loom.NewMarker(nil, loom.StaticArgs(src))

	src["name"] = "mutated"
	assert.Equal(t, "alice", m.StaticArgs()["name"], "marker must copy on construction")

	got := m.StaticArgs()
	got["name"] = "mutated"
	assert.Equal(t, "alice", m.StaticArgs()["name"], "marker must copy on read")
}

func TestInfo(t *testing.T) {
	t.Parallel()

	p := loom.Info()
	assert.Same(t, p, loom.Info(), "the introspection provider is shared")
	assert.Equal(t, "paraminfo", p.Name())
	assert.Empty(t, p.Params())

	_, err := p.Provide(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, loom.IsInvalidProvider(err))
}
