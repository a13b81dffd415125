package loom

import (
	"errors"
	reflectPkg "reflect"
	"time"

	"github.com/google/uuid"

	"github.com/loomdi/loom/internal/graph"
	"github.com/loomdi/loom/internal/queue"
)

// node is one occurrence of a marker inside the built graph. Nodes live
// in the Graph's flat arena; parent is an arena index, -1 for the root.
// It is a back-reference for generic-type propagation only, never
// lifecycle ownership.
type node struct {
	id         uuid.UUID
	provider   Provider
	useCache   bool
	staticArgs map[string]any
	paramName  string
	parent     int
	declType   reflectPkg.Type
}

// BuildGraph walks target's declared parameters breadth-first and returns
// the immutable dependency graph: nodes, adjacency, topological order,
// and isolated subgraphs for non-cached markers. Construction is pure
// structural analysis; no provider is invoked.
func BuildGraph(target Provider, opts ...BuildOption) (*Graph, error) {
	cfg := newBuildConfig(opts)

	start := time.Now()
	g, err := buildWith(target, cfg, make(map[string]bool))

	name := "<nil>"
	if target != nil {
		name = target.Name()
	}
	nodes := 0
	if g != nil {
		nodes = g.Len()
	}
	for _, hook := range cfg.onBuild {
		hook(name, nodes, time.Since(start), err)
	}

	return g, err
}

// building tracks isolated-subgraph roots currently under construction,
// keyed by provider identity. A non-cached provider reached again while
// its own subgraph is being built closes a cycle that the shared
// adjacency cannot see.
func buildWith(target Provider, cfg *buildConfig, building map[string]bool) (*Graph, error) {
	if target == nil {
		return nil, errInvalidProvider("<nil>", "target provider is nil")
	}

	b := &builder{
		cfg:      cfg,
		dag:      graph.New(),
		isolated: make(map[int]*Graph),
		seen:     make(map[uuid.UUID]int),
		building: building,
	}

	root := &node{
		id:       uuid.New(),
		provider: target,
		useCache: true,
		parent:   -1,
	}
	b.arena = append(b.arena, root)
	b.dag.AddNode(target.Name())

	pending := queue.New[int]()
	pending.Push(0)
	for pending.Len() > 0 {
		if err := b.expand(pending.Pop(), pending); err != nil {
			return nil, err
		}
	}

	order, err := b.dag.TopologicalSort()
	if err != nil {
		if errors.Is(err, graph.ErrCycleDetected) {
			return nil, errCycleDetected(b.names(b.dag.CyclePath()))
		}
		return nil, err
	}

	levels, err := b.dag.Levels()
	if err != nil {
		return nil, err
	}

	return &Graph{
		arena:     b.arena,
		dag:       b.dag,
		order:     order,
		levels:    levels,
		isolated:  b.isolated,
		target:    target,
		overrides: cfg.overrides,
		logger:    cfg.logger,
	}, nil
}

type builder struct {
	cfg      *buildConfig
	arena    []*node
	dag      *graph.DAG
	isolated map[int]*Graph
	seen     map[uuid.UUID]int
	building map[string]bool
}

// expand processes one dequeued node: override substitution, generic
// origin resolution, then one child node per marker parameter. Shared
// children are enqueued; non-cached children root isolated subgraphs.
func (b *builder) expand(idx int, pending *queue.FIFO[int]) error {
	n := b.arena[idx]

	if sub, ok := b.cfg.overrides.lookup(n.provider); ok {
		n.provider = sub
	}

	if _, ok := n.provider.(*infoProvider); ok {
		return nil
	}

	if err := resolveOrigin(n, b.arena); err != nil {
		return err
	}
	// the substituted concrete provider may itself be overridden
	if sub, ok := b.cfg.overrides.lookup(n.provider); ok {
		n.provider = sub
	}

	for _, prm := range n.provider.Params() {
		marker, failedAdapt := b.markerOf(prm.Default)
		if marker == nil {
			if failedAdapt {
				b.cfg.logger.Warn("skipping parameter with unadaptable foreign marker",
					"param", prm.Name, "provider", n.provider.Name())
			}
			continue
		}

		provider := marker.Provider()
		_, generic := provider.(*typeParamProvider)

		// a marker instance reused across signatures is one node with
		// several dependents; placeholders are exempt since their
		// substitution depends on which parametrized parent reached them
		if !generic {
			if childIdx, ok := b.seen[marker.ID()]; ok {
				b.dag.AddEdge(idx, childIdx)
				continue
			}
		}

		if provider == nil {
			provider = inferProvider(prm)
			if provider == nil {
				return errUnresolvedDependency(prm.Name, n.provider.Name())
			}
		}

		child := &node{
			id:         uuid.New(),
			provider:   provider,
			useCache:   marker.UseCache(),
			staticArgs: marker.StaticArgs(),
			paramName:  prm.Name,
			parent:     idx,
			declType:   prm.Type,
		}
		b.arena = append(b.arena, child)
		childIdx := len(b.arena) - 1
		b.dag.AddNode(provider.Name())
		b.dag.AddEdge(idx, childIdx)
		if !generic {
			b.seen[marker.ID()] = childIdx
		}

		if child.useCache {
			pending.Push(childIdx)
			continue
		}

		// an isolated subgraph roots a fresh build that cannot see this
		// arena, so the placeholder must be substituted before descending
		if err := resolveOrigin(child, b.arena); err != nil {
			return err
		}
		if err := b.buildIsolated(childIdx, child); err != nil {
			return err
		}
	}

	return nil
}

func (b *builder) buildIsolated(childIdx int, child *node) error {
	pid := child.provider.ID()
	if b.building[pid] {
		return errCycleDetected([]string{child.provider.Name(), child.provider.Name()})
	}

	b.building[pid] = true
	sub, err := buildWith(child.provider, b.cfg, b.building)
	delete(b.building, pid)
	if err != nil {
		return err
	}

	b.isolated[childIdx] = sub
	return nil
}

func (b *builder) markerOf(def any) (m *Marker, failedAdapt bool) {
	if def == nil {
		return nil, false
	}
	if native, ok := def.(*Marker); ok {
		return native, false
	}
	if _, ok := def.(ForeignMarker); ok {
		if adapted, ok := AdaptMarker(def); ok {
			return adapted, false
		}
		return nil, true
	}
	return nil, false
}

func (b *builder) names(path []int) []string {
	out := make([]string, len(path))
	for i, idx := range path {
		out[i] = b.arena[idx].provider.Name()
	}
	return out
}

// inferProvider derives a provider from a parameter's declared type when
// its marker names none: struct types construct themselves field-wise,
// other concrete types yield their zero value, interfaces cannot be
// inferred.
func inferProvider(prm Param) Provider {
	t := prm.Type
	if t == nil {
		return nil
	}

	elem := t
	if elem.Kind() == reflectPkg.Ptr {
		elem = elem.Elem()
	}

	switch {
	case elem.Kind() == reflectPkg.Struct:
		return StructOf(t)
	case t.Kind() == reflectPkg.Interface:
		return nil
	default:
		return zeroOf(t)
	}
}
