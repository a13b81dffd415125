package loom

import (
	"fmt"
	reflectPkg "reflect"
	"runtime"

	"github.com/loomdi/loom/internal/typekey"
)

// ForeignMarker is the structural shape of dependency markers from other
// injection frameworks. Any parameter default exposing a provider and a
// cache flag is normalized into a native Marker at build time, so callers
// can mix marker types without converting by hand.
type ForeignMarker interface {
	Dependency() any
	UseCache() bool
}

// foreignStaticArgs is optionally implemented alongside ForeignMarker.
type foreignStaticArgs interface {
	StaticArgs() map[string]any
}

// AdaptMarker normalizes a foreign marker into a native one. The foreign
// dependency may be nil (inferred from the declared type), a Provider, or
// a plain function, which is wrapped with reflect-derived parameters that
// are themselves injected by declared type.
func AdaptMarker(v any) (*Marker, bool) {
	fm, ok := v.(ForeignMarker)
	if !ok {
		return nil, false
	}

	var provider Provider
	switch dep := fm.Dependency().(type) {
	case nil:
		provider = nil
	case Provider:
		provider = dep
	default:
		p, err := adaptCallable(dep)
		if err != nil {
			return nil, false
		}
		provider = p
	}

	var opts []MarkerOption
	if !fm.UseCache() {
		opts = append(opts, NoCache())
	}
	if sa, ok := v.(foreignStaticArgs); ok {
		if args := sa.StaticArgs(); len(args) > 0 {
			opts = append(opts, StaticArgs(args))
		}
	}

	return NewMarker(provider, opts...), true
}

// adaptCallable wraps a foreign function whose parameters were never
// declared: each input becomes an injected parameter named by position
// and inferred from its type.
func adaptCallable(fn any) (Provider, error) {
	info, err := typekey.DescribeFunc(fn)
	if err != nil {
		return nil, err
	}

	params := make([]Param, len(info.In))
	for i, in := range info.In {
		params[i] = Param{
			Name:    fmt.Sprintf("p%d", i),
			Type:    in,
			Default: NewMarker(nil),
		}
	}

	return Func(callableName(fn), fn, params...), nil
}

func callableName(fn any) string {
	if pc := reflectPkg.ValueOf(fn).Pointer(); pc != 0 {
		if f := runtime.FuncForPC(pc); f != nil {
			return f.Name()
		}
	}
	return typekey.KeyOf(fn)
}
