package loom_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomdi/loom"
)

type Store interface {
	Kind() string
}

type PostgresStore struct{ DSN string }

func (s *PostgresStore) Kind() string { return "postgres" }

type MemoryStore struct{}

func (s *MemoryStore) Kind() string { return "memory" }

func storeProviders() (pg, mem loom.Provider) {
	pg = loom.Func("postgres", func() Store { return &PostgresStore{} })
	mem = loom.Func("memory", func() Store { return &MemoryStore{} })
	return pg, mem
}

// repositoryOf declares a provider whose store dependency is deferred to
// the use site through a type placeholder.
func repositoryOf(param string) loom.Provider {
	return loom.Func("repository", func(store Store) string { return store.Kind() },
		loom.P("store", loom.NewMarker(loom.TypeParam(param))))
}

func TestParametrized_SubstitutesPlaceholder(t *testing.T) {
	t.Parallel()

	pg, _ := storeProviders()
	repo := repositoryOf("S")

	target := loom.Func("svc", func(kind string) string { return kind },
		loom.P("kind", loom.NewMarker(loom.Parametrized(repo, loom.Arg("S", pg)))))

	out, err := loom.Call(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, "postgres", out)
}

func TestParametrized_AsTarget(t *testing.T) {
	t.Parallel()

	_, mem := storeProviders()
	repo := repositoryOf("S")

	out, err := loom.Call(context.Background(), loom.Parametrized(repo, loom.Arg("S", mem)))
	require.NoError(t, err)
	assert.Equal(t, "memory", out)
}

func TestParametrized_MultipleParams(t *testing.T) {
	t.Parallel()

	pg, mem := storeProviders()

	pair := loom.Func("pair", func(primary, secondary Store) string {
		return primary.Kind() + "+" + secondary.Kind()
	},
		loom.P("primary", loom.NewMarker(loom.TypeParam("P"))),
		loom.P("secondary", loom.NewMarker(loom.TypeParam("S"))),
	)

	out, err := loom.Call(context.Background(),
		loom.Parametrized(pair, loom.Arg("P", pg), loom.Arg("S", mem)))
	require.NoError(t, err)
	assert.Equal(t, "postgres+memory", out)
}

func TestParametrized_DistinctBindingsStayDistinct(t *testing.T) {
	t.Parallel()

	pg, mem := storeProviders()
	repo := repositoryOf("S")

	// both use sites share repo and therefore the same placeholder
	// marker; each must still get its own substitution
	target := loom.Func("svc", func(primary, fallback string) string {
		return primary + "/" + fallback
	},
		loom.P("primary", loom.NewMarker(loom.Parametrized(repo, loom.Arg("S", pg)))),
		loom.P("fallback", loom.NewMarker(loom.Parametrized(repo, loom.Arg("S", mem)))),
	)

	out, err := loom.Call(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, "postgres/memory", out)
}

func TestParametrized_IsolatedPlaceholder(t *testing.T) {
	t.Parallel()

	pg, _ := storeProviders()

	repo := loom.Func("repository", func(store Store) string { return store.Kind() },
		loom.P("store", loom.NewMarker(loom.TypeParam("S"), loom.NoCache())))

	out, err := loom.Call(context.Background(), loom.Parametrized(repo, loom.Arg("S", pg)))
	require.NoError(t, err)
	assert.Equal(t, "postgres", out)
}

func TestParametrized_SubstitutedProviderHasDependencies(t *testing.T) {
	t.Parallel()

	cfg := loom.Func("config", func() *Config { return &Config{DSN: "pg://db"} })
	pg := loom.Func("postgres", func(cfg *Config) Store {
		return &PostgresStore{DSN: cfg.DSN}
	}, loom.P("cfg", loom.NewMarker(cfg)))

	repo := loom.Func("repository", func(store Store) string {
		return store.(*PostgresStore).DSN
	}, loom.P("store", loom.NewMarker(loom.TypeParam("S"))))

	out, err := loom.Call(context.Background(), loom.Parametrized(repo, loom.Arg("S", pg)))
	require.NoError(t, err)
	assert.Equal(t, "pg://db", out)
}

func TestParametrized_OverrideWinsOverSubstitution(t *testing.T) {
	t.Parallel()

	pg, mem := storeProviders()
	repo := repositoryOf("S")

	o := loom.NewOverrides().Set(pg, mem)
	g, err := loom.BuildGraph(loom.Parametrized(repo, loom.Arg("S", pg)), loom.WithOverrides(o))
	require.NoError(t, err)

	c, err := g.SyncContext()
	require.NoError(t, err)

	args, err := c.Resolve(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Close(context.Background(), nil))

	assert.Equal(t, "memory", args["store"].(Store).Kind())
}

func TestParametrized_MissingParametrization(t *testing.T) {
	t.Parallel()

	repo := repositoryOf("S")

	target := loom.Func("svc", func(kind string) string { return kind },
		loom.P("kind", loom.NewMarker(repo)))

	_, err := loom.BuildGraph(target)
	require.Error(t, err)
	assert.True(t, loom.IsUnresolvedGenericParameter(err))
	assert.Contains(t, err.Error(), `"S"`)

	var e *loom.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "store", e.Param)
}

func TestParametrized_WrongArgumentName(t *testing.T) {
	t.Parallel()

	pg, _ := storeProviders()
	repo := repositoryOf("S")

	_, err := loom.BuildGraph(loom.Parametrized(repo, loom.Arg("T", pg)))
	require.Error(t, err)
	assert.True(t, loom.IsUnresolvedGenericParameter(err))
}

func TestParametrized_PlaceholderAtRoot(t *testing.T) {
	t.Parallel()

	_, err := loom.BuildGraph(loom.TypeParam("S"))
	require.Error(t, err)
	assert.True(t, loom.IsUnresolvedGenericParameter(err))
}

func TestParametrized_ConstructionPanics(t *testing.T) {
	t.Parallel()

	pg, _ := storeProviders()

	assert.Panics(t, func() { loom.Parametrized(nil, loom.Arg("S", pg)) })
	assert.Panics(t, func() { loom.Parametrized(pg) })
	assert.Panics(t, func() { loom.Parametrized(pg, loom.Arg("", pg)) })
	assert.Panics(t, func() { loom.Parametrized(pg, loom.Arg("S", nil)) })
	assert.Panics(t, func() { loom.TypeParam("") })
}

func TestParametrized_Name(t *testing.T) {
	t.Parallel()

	pg, mem := storeProviders()
	repo := repositoryOf("S")

	p := loom.Parametrized(repo, loom.Arg("P", pg), loom.Arg("S", mem))
	assert.Equal(t, "repository[postgres, memory]", p.Name())
}
