package loom

import (
	"log/slog"
	"sync"

	"github.com/loomdi/loom/internal/graph"
)

// Graph is the immutable result of BuildGraph. It owns the node arena,
// the adjacency between arena indices, the precomputed topological order
// and parallel levels, and one nested Graph per isolated (non-cached)
// node. A Graph is safe for concurrent use and may back any number of
// resolution contexts.
type Graph struct {
	arena     []*node
	dag       *graph.DAG
	order     []int
	levels    [][]int
	isolated  map[int]*Graph
	target    Provider
	overrides *Overrides
	logger    *slog.Logger
}

// Target returns the provider the graph was built for.
func (g *Graph) Target() Provider { return g.target }

// providerNames maps arena indices to effective provider names. The
// adjacency's own labels are assigned at node creation and go stale
// when an override substitutes the provider afterwards.
func (g *Graph) providerNames(idxs []int) []string {
	out := make([]string, len(idxs))
	for i, idx := range idxs {
		out[i] = g.arena[idx].provider.Name()
	}
	return out
}

// Len reports the number of nodes, the target included.
func (g *Graph) Len() int { return len(g.arena) }

// IsEmpty reports whether the target declares no dependencies at all,
// so resolution has nothing to do.
func (g *Graph) IsEmpty() bool { return len(g.arena) <= 1 }

// SyncContext starts a sequential resolution pass over the graph. When
// the options carry context overrides the graph is rebuilt with them
// first, since overrides change the graph's shape, not just its values.
func (g *Graph) SyncContext(opts ...ContextOption) (*SyncContext, error) {
	cfg := newContextConfig(opts)
	eg, err := g.forContext(cfg)
	if err != nil {
		return nil, err
	}
	return newSyncContext(eg, cfg), nil
}

// AsyncContext starts a concurrent resolution pass over the graph,
// scheduling each dependency level in parallel. Option handling matches
// SyncContext.
func (g *Graph) AsyncContext(opts ...ContextOption) (*AsyncContext, error) {
	cfg := newContextConfig(opts)
	eg, err := g.forContext(cfg)
	if err != nil {
		return nil, err
	}
	return newAsyncContext(eg, cfg), nil
}

func (g *Graph) forContext(cfg *contextConfig) (*Graph, error) {
	if cfg.overrides.Len() == 0 {
		return g, nil
	}
	merged := g.overrides.clone().Merge(cfg.overrides)
	return BuildGraph(g.target, WithOverrides(merged), withBuildLoggerOf(g.logger))
}

func withBuildLoggerOf(l *slog.Logger) BuildOption {
	return func(cfg *buildConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// GraphCache memoizes built graphs by target provider identity, so hot
// paths that resolve the same target repeatedly skip reconstruction.
type GraphCache struct {
	mu     sync.RWMutex
	graphs map[string]*Graph
}

func NewGraphCache() *GraphCache {
	return &GraphCache{graphs: make(map[string]*Graph)}
}

// GetOrBuild returns the cached graph for target, building and storing
// it on first use. Builds with overrides bypass the cache entirely:
// their graphs are override-specific and must not leak into plain
// lookups.
func (c *GraphCache) GetOrBuild(target Provider, opts ...BuildOption) (*Graph, error) {
	if target == nil {
		return nil, errInvalidProvider("<nil>", "target provider is nil")
	}

	cfg := newBuildConfig(opts)
	if cfg.overrides.Len() > 0 {
		return BuildGraph(target, opts...)
	}

	c.mu.RLock()
	g, ok := c.graphs[target.ID()]
	c.mu.RUnlock()
	if ok {
		return g, nil
	}

	g, err := BuildGraph(target, opts...)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if cached, ok := c.graphs[target.ID()]; ok {
		g = cached
	} else {
		c.graphs[target.ID()] = g
	}
	c.mu.Unlock()

	return g, nil
}

// Invalidate drops the cached graph for target, if any.
func (c *GraphCache) Invalidate(target Provider) {
	if target == nil {
		return
	}
	c.mu.Lock()
	delete(c.graphs, target.ID())
	c.mu.Unlock()
}

// Len reports how many graphs are cached.
func (c *GraphCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.graphs)
}
