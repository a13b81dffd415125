package loom_test

import (
	"context"
	"io"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomdi/loom"
)

// loopProvider lets tests declare self-referential parameter chains,
// which Func cannot express because its params are fixed at
// construction.
type loopProvider struct {
	id     string
	params []loom.Param
}

func (p *loopProvider) ID() string           { return p.id }
func (p *loopProvider) Name() string         { return p.id }
func (p *loopProvider) Params() []loom.Param { return p.params }

func (p *loopProvider) Provide(context.Context, map[string]any) (any, error) {
	return p.id, nil
}

func TestBuildGraph_CycleDetected(t *testing.T) {
	t.Parallel()

	a := &loopProvider{id: "a"}
	b := &loopProvider{id: "b"}
	a.params = []loom.Param{{Name: "b", Default: loom.NewMarker(b)}}
	b.params = []loom.Param{{Name: "a", Default: loom.NewMarker(a)}}

	_, err := loom.BuildGraph(a)
	require.Error(t, err)
	assert.True(t, loom.IsCycleDetected(err))
	assert.Contains(t, err.Error(), "circular dependency detected")

	var e *loom.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, []string{"b", "a", "b"}, e.Chain)
}

func TestBuildGraph_SelfCycle(t *testing.T) {
	t.Parallel()

	s := &loopProvider{id: "s"}
	s.params = []loom.Param{{Name: "self", Default: loom.NewMarker(s)}}

	_, err := loom.BuildGraph(s)
	require.Error(t, err)
	assert.True(t, loom.IsCycleDetected(err))
	assert.Contains(t, err.Error(), "s -> s")
}

func TestBuildGraph_IsolatedCycle(t *testing.T) {
	t.Parallel()

	a := &loopProvider{id: "a"}
	b := &loopProvider{id: "b"}
	a.params = []loom.Param{{Name: "b", Default: loom.NewMarker(b, loom.NoCache())}}
	b.params = []loom.Param{{Name: "a", Default: loom.NewMarker(a)}}

	_, err := loom.BuildGraph(a)
	require.Error(t, err)
	assert.True(t, loom.IsCycleDetected(err))
}

func TestBuildGraph_Overrides(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	_, db, _, handler := serviceProviders(log)

	fake := loom.Func("fakedb", func() *Database {
		log.add("fakedb")
		return &Database{}
	})

	o := loom.NewOverrides().Set(db, fake)
	g, err := loom.BuildGraph(handler, loom.WithOverrides(o))
	require.NoError(t, err)

	c, err := g.SyncContext()
	require.NoError(t, err)

	args, err := c.Resolve(context.Background())
	require.NoError(t, err)
	defer func() { _ = c.Close(context.Background(), nil) }()

	repoVal := args["repo"].(*Repository)
	assert.Nil(t, repoVal.DB.Config, "fake database carries no config")
	assert.Equal(t, 1, log.count("fakedb"))
	assert.Equal(t, 0, log.count("database"), "overridden provider must not run")
}

func TestBuildGraph_OverrideLeavesOriginalGraph(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	_, db, _, handler := serviceProviders(log)

	fake := loom.Func("fakedb", func() *Database { return &Database{} })

	plain, err := loom.BuildGraph(handler)
	require.NoError(t, err)
	overridden, err := loom.BuildGraph(handler, loom.WithOverrides(loom.NewOverrides().Set(db, fake)))
	require.NoError(t, err)

	c, err := plain.SyncContext()
	require.NoError(t, err)
	args, err := c.Resolve(context.Background())
	require.NoError(t, err)
	defer func() { _ = c.Close(context.Background(), nil) }()

	assert.NotNil(t, args["repo"].(*Repository).DB.Config)
	assert.Equal(t, 1, log.count("database"))
	assert.NotEqual(t, plain.SprintGraph(), overridden.SprintGraph())
}

func TestBuildGraph_InfersStructProvider(t *testing.T) {
	t.Parallel()

	target := loom.Func("svc", func(cfg *Config) bool { return cfg != nil },
		loom.P("cfg", loom.NewMarker(nil)))

	out, err := loom.Call(context.Background(), target)
	require.NoError(t, err)
	assert.True(t, out.(bool), "inferred struct provider must construct a non-nil value")
}

func TestBuildGraph_InfersZeroValues(t *testing.T) {
	t.Parallel()

	target := loom.Func("svc", func(limit int, name string) int {
		if name != "" {
			return -1
		}
		return limit
	}, loom.P("limit", loom.NewMarker(nil)), loom.P("name", loom.NewMarker(nil)))

	out, err := loom.Call(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, 0, out)
}

func TestBuildGraph_InferenceUnifies(t *testing.T) {
	t.Parallel()

	type shared struct{ n int }

	left := loom.Func("left", func(s *shared) *shared { return s },
		loom.P("s", loom.NewMarker(nil)))
	right := loom.Func("right", func(s *shared) *shared { return s },
		loom.P("s", loom.NewMarker(nil)))

	target := loom.Func("pair", func(l, r *shared) bool { return l == r },
		loom.P("l", loom.NewMarker(left)), loom.P("r", loom.NewMarker(right)))

	out, err := loom.Call(context.Background(), target)
	require.NoError(t, err)
	assert.True(t, out.(bool), "independently inferred providers of one type must share a value")
}

func TestBuildGraph_UnresolvedInterface(t *testing.T) {
	t.Parallel()

	target := loom.Func("sink", func(w io.Writer) string { return "" },
		loom.P("w", loom.NewMarker(nil)))

	_, err := loom.BuildGraph(target)
	require.Error(t, err)
	assert.True(t, loom.IsUnresolvedDependency(err))

	var e *loom.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "w", e.Param)
	assert.Equal(t, "sink", e.Provider)
}

func TestBuildGraph_IsolatedSubgraph(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	session := loom.Func("session", func() *Database {
		log.add("session")
		return &Database{}
	})

	target := loom.Func("svc", func(shared1, shared2, fresh *Database) bool {
		return shared1 == shared2 && shared1 != fresh
	},
		loom.P("shared1", loom.NewMarker(session)),
		loom.P("shared2", loom.NewMarker(session)),
		loom.P("fresh", loom.NewMarker(session, loom.NoCache())),
	)

	out, err := loom.Call(context.Background(), target)
	require.NoError(t, err)
	assert.True(t, out.(bool), "isolated value must be distinct, cached values shared")
	assert.Equal(t, 2, log.count("session"))
}

func TestBuildGraph_SharedMarkerIsOneNode(t *testing.T) {
	t.Parallel()

	leaf := loom.Func("leaf", func() int { return 1 })
	m := loom.NewMarker(leaf)

	mid := loom.Func("mid", func(n int) int { return n }, loom.P("n", m))
	target := loom.Func("top", func(a, b int) int { return a + b },
		loom.P("a", loom.NewMarker(mid)), loom.P("b", m))

	g, err := loom.BuildGraph(target)
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len(), "a reused marker occupies one node")

	out, err := loom.Call(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, 2, out)
}

func TestBuildGraph_DeepChainTerminates(t *testing.T) {
	t.Parallel()

	prev := loom.Func("p0", func() int { return 0 })
	for i := 1; i <= 100; i++ {
		dep := prev
		prev = loom.Func("p"+strconv.Itoa(i), func(n int) int { return n + 1 },
			loom.P("n", loom.NewMarker(dep)))
	}

	g, err := loom.BuildGraph(prev)
	require.NoError(t, err)
	assert.Equal(t, 101, g.Len())

	out, err := loom.Call(context.Background(), prev)
	require.NoError(t, err)
	assert.Equal(t, 100, out)
}
