// Package loomtest provides helpers for testing code that resolves
// dependency graphs: Must* wrappers that fail the test instead of
// returning errors, automatic context teardown via Cleanup, and a
// Recorder for asserting scoped-resource lifecycles.
package loomtest

import (
	"context"
	"strings"
	"sync"

	"github.com/loomdi/loom"
)

// TB is the subset of testing.TB the helpers need.
type TB interface {
	Helper()
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Cleanup(f func())
}

// MustBuild builds target's graph, failing the test on error.
func MustBuild(tb TB, target loom.Provider, opts ...loom.BuildOption) *loom.Graph {
	tb.Helper()

	g, err := loom.BuildGraph(target, opts...)
	if err != nil {
		tb.Fatalf("failed to build graph for %s: %v", target.Name(), err)
	}
	return g
}

// MustResolve resolves g sequentially and returns the target's
// arguments. The context is closed through Cleanup when the test ends,
// releasing scoped resources in reverse order.
func MustResolve(tb TB, g *loom.Graph, opts ...loom.ContextOption) map[string]any {
	tb.Helper()

	c, err := g.SyncContext(opts...)
	if err != nil {
		tb.Fatalf("failed to create context for %s: %v", g.Target().Name(), err)
	}

	args, err := c.Resolve(context.Background())
	if err != nil {
		tb.Fatalf("failed to resolve %s: %v", g.Target().Name(), err)
	}

	tb.Cleanup(func() {
		if err := c.Close(context.Background(), nil); err != nil {
			tb.Fatalf("failed to close context for %s: %v", g.Target().Name(), err)
		}
	})

	return args
}

// MustResolveAsync is MustResolve with level-parallel resolution.
func MustResolveAsync(tb TB, g *loom.Graph, opts ...loom.ContextOption) map[string]any {
	tb.Helper()

	c, err := g.AsyncContext(opts...)
	if err != nil {
		tb.Fatalf("failed to create context for %s: %v", g.Target().Name(), err)
	}

	args, err := c.Resolve(context.Background())
	if err != nil {
		tb.Fatalf("failed to resolve %s: %v", g.Target().Name(), err)
	}

	tb.Cleanup(func() {
		if err := c.Close(context.Background(), nil); err != nil {
			tb.Fatalf("failed to close context for %s: %v", g.Target().Name(), err)
		}
	})

	return args
}

// MustCall resolves target and invokes it, failing the test on error.
func MustCall(tb TB, target loom.Provider, opts ...loom.ContextOption) any {
	tb.Helper()

	out, err := loom.Call(context.Background(), target, opts...)
	if err != nil {
		tb.Fatalf("failed to call %s: %v", target.Name(), err)
	}
	return out
}

// Arg fetches a resolved argument under its declared type.
func Arg[T any](tb TB, args map[string]any, name string) T {
	tb.Helper()

	v, ok := args[name]
	if !ok {
		tb.Fatalf("missing argument %q", name)
	}
	tv, ok := v.(T)
	if !ok {
		tb.Fatalf("argument %q is %T, want %T", name, v, *new(T))
	}
	return tv
}

// Static wraps a fixed value in a named provider.
func Static[T any](name string, v T) loom.Provider {
	return loom.Func(name, func() T { return v })
}

// Recorder journals scoped-resource lifecycles so tests can assert
// acquisition and release order.
type Recorder struct {
	mu     sync.Mutex
	events []string
	causes []error
}

// Resource returns a scoped resource journaling "acquire:<name>" and
// "release:<name>"; the acquired value is name itself.
func (r *Recorder) Resource(name string) loom.ResourceFuncs {
	return loom.ResourceFuncs{
		AcquireFunc: func(context.Context) (any, error) {
			r.mu.Lock()
			r.events = append(r.events, "acquire:"+name)
			r.mu.Unlock()
			return name, nil
		},
		ReleaseFunc: func(_ context.Context, cause error) error {
			r.mu.Lock()
			r.events = append(r.events, "release:"+name)
			r.causes = append(r.causes, cause)
			r.mu.Unlock()
			return nil
		},
	}
}

// Leaf wraps Resource in a dependency-free provider.
func (r *Recorder) Leaf(name string) loom.Provider {
	return loom.Func(name, func() loom.ResourceFuncs {
		return r.Resource(name)
	})
}

// After chains a journaled scoped provider onto dep, which must itself
// be built by Leaf or After so its value is the resource name.
func (r *Recorder) After(name string, dep loom.Provider) loom.Provider {
	return loom.Func(name, func(prev string) loom.ResourceFuncs {
		return r.Resource(name)
	}, loom.P("prev", loom.NewMarker(dep)))
}

// Events returns a copy of the journal in order.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Causes returns the release causes in release order.
func (r *Recorder) Causes() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.causes...)
}

// AssertReverseTeardown fails the test unless every acquired resource
// was released and releases ran in exact reverse acquisition order.
func (r *Recorder) AssertReverseTeardown(tb TB) {
	tb.Helper()

	var acquires, releases []string
	for _, e := range r.Events() {
		switch {
		case strings.HasPrefix(e, "acquire:"):
			acquires = append(acquires, strings.TrimPrefix(e, "acquire:"))
		case strings.HasPrefix(e, "release:"):
			releases = append(releases, strings.TrimPrefix(e, "release:"))
		}
	}

	if len(acquires) != len(releases) {
		tb.Fatalf("acquired %d resources but released %d", len(acquires), len(releases))
	}
	for i, name := range acquires {
		if got := releases[len(releases)-1-i]; got != name {
			tb.Fatalf("release order is not the reverse of acquisition: acquired %v, released %v",
				acquires, releases)
		}
	}
}
