package loom

import (
	"context"
	"maps"
	"reflect"

	"github.com/google/uuid"
)

// Marker is a declarative placeholder used as a parameter default to
// request injection. A Marker is immutable once constructed; its identity
// token distinguishes occurrences even when they share a provider.
type Marker struct {
	id         uuid.UUID
	provider   Provider
	useCache   bool
	staticArgs map[string]any
}

type MarkerOption func(*Marker)

// NewMarker declares an injected parameter. provider may be nil, in which
// case the graph builder infers one from the parameter's declared type.
// Caching is on by default.
func NewMarker(provider Provider, opts ...MarkerOption) *Marker {
	m := &Marker{
		id:       uuid.New(),
		provider: provider,
		useCache: true,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// NoCache roots an isolated subgraph at this marker: its resolution never
// reads or writes the enclosing context's cache.
func NoCache() MarkerOption {
	return func(m *Marker) {
		m.useCache = false
	}
}

// StaticArgs fixes arguments passed verbatim to the provider at
// invocation time. Static args take part in the cache key and win over
// resolved sub-dependencies on name collision.
func StaticArgs(args map[string]any) MarkerOption {
	return func(m *Marker) {
		m.staticArgs = maps.Clone(args)
	}
}

func (m *Marker) ID() uuid.UUID {
	return m.id
}

func (m *Marker) Provider() Provider {
	return m.provider
}

func (m *Marker) UseCache() bool {
	return m.useCache
}

func (m *Marker) StaticArgs() map[string]any {
	return maps.Clone(m.staticArgs)
}

// ParamInfo describes an injected parameter's own binding. A parameter
// whose marker uses the Info provider receives its ParamInfo directly,
// without graph traversal.
type ParamInfo struct {
	Name  string
	Owner string
	Type  reflect.Type
}

// Info returns the introspection provider. It has no sub-dependencies;
// the resolution context synthesizes a ParamInfo for each binding site
// instead of invoking it.
func Info() Provider {
	return paramInfoProvider
}

var paramInfoProvider = &infoProvider{id: uuid.NewString()}

type infoProvider struct {
	id string
}

func (p *infoProvider) ID() string      { return p.id }
func (p *infoProvider) Name() string    { return "paraminfo" }
func (p *infoProvider) Params() []Param { return nil }

func (p *infoProvider) Provide(context.Context, map[string]any) (any, error) {
	return nil, errInvalidProvider("paraminfo", "the introspection provider cannot be invoked directly")
}
