package loom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// resolution carries the per-pass state shared by the sync and async
// contexts: resolved values per arena index, the provider-keyed value
// cache, and the LIFO stack of entered scoped resources. The two
// context kinds differ only in how they schedule resolveNode calls.
type resolution struct {
	graph *Graph
	cfg   *contextConfig

	mu     sync.Mutex
	sf     singleflight.Group
	values []any
	cache  map[string]any
	stack  []stackEntry

	consumed bool
	closed   bool
}

type stackEntry struct {
	name string
	res  Resource
}

func newResolution(g *Graph, cfg *contextConfig) *resolution {
	r := &resolution{
		graph:  g,
		cfg:    cfg,
		values: make([]any, len(g.arena)),
		cache:  make(map[string]any, len(g.arena)),
	}
	for p, v := range cfg.initial {
		if p == nil {
			continue
		}
		r.cache[cacheKey(p, nil)] = v
	}
	return r
}

// cacheKey identifies a resolved value: provider identity plus a
// deterministic fingerprint of the marker's static arguments. Markers
// with different static args never share a cache slot.
func cacheKey(p Provider, static map[string]any) string {
	if len(static) == 0 {
		return p.ID()
	}
	var sb strings.Builder
	sb.WriteString(p.ID())
	sb.WriteByte('|')
	keys := make([]string, 0, len(static))
	for k := range static {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%s=%#v", k, static[k])
	}
	return sb.String()
}

// markConsumed enforces the single-use contract.
func (r *resolution) markConsumed() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.consumed {
		return errContextConsumed()
	}
	r.consumed = true
	return nil
}

// resolveNode materializes one arena node: introspection markers are
// synthesized in place, isolated nodes run their own subgraph pass,
// everything else goes through the cache and the provider.
func (r *resolution) resolveNode(ctx context.Context, idx int) error {
	n := r.graph.arena[idx]

	if _, ok := n.provider.(*infoProvider); ok {
		r.setValue(idx, r.paramInfoFor(n))
		return nil
	}

	if sub, ok := r.graph.isolated[idx]; ok {
		v, err := r.resolveIsolated(ctx, n, sub)
		if err != nil {
			return err
		}
		r.setValue(idx, v)
		return nil
	}

	key := cacheKey(n.provider, n.staticArgs)
	start := time.Now()

	// concurrent nodes sharing a cache key collapse to one invocation
	cached := true
	v, err, _ := r.sf.Do(key, func() (any, error) {
		r.mu.Lock()
		if v, ok := r.cache[key]; ok {
			r.mu.Unlock()
			return v, nil
		}
		r.mu.Unlock()

		cached = false
		v, err := r.invoke(ctx, idx, n)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[key] = v
		r.mu.Unlock()
		return v, nil
	})
	r.observeResolve(n.provider.Name(), cached, time.Since(start), err)
	if err != nil {
		return err
	}

	r.setValue(idx, v)
	return nil
}

// invoke calls the node's provider with the values of its resolved
// dependencies, static arguments winning on name collisions, and enters
// the result when it is a scoped resource.
func (r *resolution) invoke(ctx context.Context, idx int, n *node) (any, error) {
	args := r.argsFor(idx)
	for k, v := range n.staticArgs {
		args[k] = v
	}

	v, err := n.provider.Provide(ctx, args)
	if err != nil {
		return nil, errProviderInvocation(n.provider.Name(), err)
	}

	if res, ok := asResource(v); ok {
		entered, err := res.Acquire(ctx)
		if err != nil {
			return nil, errResourceAcquisition(n.provider.Name(), err)
		}
		r.pushResource(n.provider.Name(), res)
		v = entered
	}

	return v, nil
}

// resolveIsolated runs the node's private subgraph in a fresh pass with
// an empty cache, invokes the node's provider with the subgraph's
// values, and adopts the subgraph's entered resources so the outer
// teardown releases them in one strict reverse order.
func (r *resolution) resolveIsolated(ctx context.Context, n *node, sub *Graph) (any, error) {
	child := newResolution(sub, r.cfg)

	err := child.resolveSequential(ctx)
	r.adoptStack(child)
	if err != nil {
		return nil, err
	}

	args := child.argsFor(0)
	for k, v := range n.staticArgs {
		args[k] = v
	}

	root := sub.arena[0].provider
	start := time.Now()
	v, err := root.Provide(ctx, args)
	if err != nil {
		r.observeResolve(root.Name(), false, time.Since(start), err)
		return nil, errProviderInvocation(root.Name(), err)
	}

	if res, ok := asResource(v); ok {
		entered, err := res.Acquire(ctx)
		if err != nil {
			r.observeResolve(root.Name(), false, time.Since(start), err)
			return nil, errResourceAcquisition(root.Name(), err)
		}
		r.pushResource(root.Name(), res)
		v = entered
	}

	r.observeResolve(root.Name(), false, time.Since(start), nil)
	return v, nil
}

// resolveSequential walks the topological order, dependencies first,
// skipping the root node: the root's provider is the caller's to
// invoke.
func (r *resolution) resolveSequential(ctx context.Context) error {
	for _, idx := range r.graph.order {
		if r.graph.arena[idx].parent < 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.resolveNode(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

// argsFor assembles the resolved values of idx's direct dependencies,
// keyed by the parameter name each child was declared under.
func (r *resolution) argsFor(idx int) map[string]any {
	deps := r.graph.dag.Dependencies(idx)
	args := make(map[string]any, len(deps))
	r.mu.Lock()
	for _, dep := range deps {
		args[r.graph.arena[dep].paramName] = r.values[dep]
	}
	r.mu.Unlock()
	return args
}

func (r *resolution) paramInfoFor(n *node) ParamInfo {
	owner := "<root>"
	if n.parent >= 0 {
		owner = r.graph.arena[n.parent].provider.Name()
	}
	return ParamInfo{Name: n.paramName, Owner: owner, Type: n.declType}
}

func (r *resolution) setValue(idx int, v any) {
	r.mu.Lock()
	r.values[idx] = v
	r.mu.Unlock()
}

func (r *resolution) pushResource(name string, res Resource) {
	r.mu.Lock()
	r.stack = append(r.stack, stackEntry{name: name, res: res})
	r.mu.Unlock()
}

func (r *resolution) adoptStack(child *resolution) {
	child.mu.Lock()
	entries := child.stack
	child.stack = nil
	child.mu.Unlock()

	r.mu.Lock()
	r.stack = append(r.stack, entries...)
	r.mu.Unlock()
}

// teardown releases entered resources in strict reverse acquisition
// order. With propagation enabled the cause reaches every release and
// release failures are reported; disabled, releases get a nil cause and
// failures are logged, never raised.
func (r *resolution) teardown(ctx context.Context, cause error) error {
	r.mu.Lock()
	entries := r.stack
	r.stack = nil
	r.mu.Unlock()

	relCause := cause
	if !r.cfg.propagate {
		relCause = nil
	}

	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		start := time.Now()
		err := e.res.Release(ctx, relCause)
		r.observeTeardown(e.name, time.Since(start), err)
		if err == nil {
			continue
		}
		if !r.cfg.propagate {
			r.cfg.logger.Warn("suppressed scoped resource release failure",
				"provider", e.name, slog.Any("error", err))
			continue
		}
		errs = append(errs, errResourceRelease(e.name, err))
	}

	return errors.Join(errs...)
}

// closeWith runs teardown exactly once; later calls are no-ops.
func (r *resolution) closeWith(ctx context.Context, cause error) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.consumed = true
	r.mu.Unlock()

	return r.teardown(ctx, cause)
}

// kwargs materializes Resolve's result: the root's direct dependencies
// keyed by parameter name.
func (r *resolution) kwargs() map[string]any {
	return r.argsFor(0)
}

func (r *resolution) observeResolve(name string, cached bool, d time.Duration, err error) {
	for _, hook := range r.cfg.onResolve {
		hook(name, cached, d, err)
	}
}

func (r *resolution) observeTeardown(name string, d time.Duration, err error) {
	for _, hook := range r.cfg.onTeardown {
		hook(name, d, err)
	}
}

// SyncContext resolves a graph's dependencies one provider at a time in
// topological order. A context is single-use: one Resolve, then Close.
type SyncContext struct {
	r *resolution
}

func newSyncContext(g *Graph, cfg *contextConfig) *SyncContext {
	return &SyncContext{r: newResolution(g, cfg)}
}

// Resolve invokes every provider the target depends on, dependencies
// before dependents, and returns the target's arguments keyed by
// parameter name. On failure the already-entered scoped resources are
// released immediately, the error as cause, and the context is closed.
func (c *SyncContext) Resolve(ctx context.Context) (map[string]any, error) {
	if err := c.r.markConsumed(); err != nil {
		return nil, err
	}

	if err := c.r.resolveSequential(ctx); err != nil {
		// teardown must run even when ctx is already cancelled
		if terr := c.r.closeWith(context.Background(), err); terr != nil {
			c.r.cfg.logger.Warn("teardown after failed resolution",
				slog.Any("error", terr))
		}
		return nil, err
	}

	return c.r.kwargs(), nil
}

// Close releases the entered scoped resources in reverse acquisition
// order. cause is forwarded to each release when exception propagation
// is enabled. Closing twice is a no-op.
func (c *SyncContext) Close(ctx context.Context, cause error) error {
	return c.r.closeWith(ctx, cause)
}

// Run resolves the graph, hands the arguments to fn, and always closes
// the context afterwards, forwarding fn's error as the teardown cause.
func (c *SyncContext) Run(ctx context.Context, fn func(ctx context.Context, args map[string]any) error) error {
	args, err := c.Resolve(ctx)
	if err != nil {
		return err
	}

	err = fn(ctx, args)
	if cerr := c.Close(ctx, err); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}
