package loom

import (
	"context"
	"fmt"
	reflectPkg "reflect"

	"github.com/google/uuid"

	"github.com/loomdi/loom/internal/typekey"
)

// TagKey marks struct fields resolved by struct providers.
const TagKey = "loom"

// Provider produces a dependency's value. Implementations expose their
// declared parameter list so the graph builder can introspect them
// statically; Provide is then invoked with a fully materialized argument
// map in dependency order.
type Provider interface {
	// ID is the provider's identity token. Cache keys and override
	// lookups go through it: two providers with the same ID are treated
	// as the same provider.
	ID() string
	// Name is the diagnostic name used in errors and debug output.
	Name() string
	// Params declares the provider's parameters in positional order.
	Params() []Param
	// Provide computes the value from materialized arguments keyed by
	// parameter name.
	Provide(ctx context.Context, args map[string]any) (any, error)
}

// Param is one declared parameter of a provider. Default may be a
// *Marker (the parameter is injected), a foreign marker recognized by
// AdaptMarker, a plain value (used when the argument map omits the
// parameter), or nil.
type Param struct {
	Name    string
	Type    reflectPkg.Type
	Default any
}

// P declares a parameter by name. The type is taken from the wrapped
// function's signature when used with Func.
func P(name string, def any) Param {
	return Param{Name: name, Default: def}
}

// PT declares a parameter with an explicit type, for providers built
// outside Func where no signature supplies one. The type feeds provider
// inference and ParamInfo.
func PT(name string, t reflectPkg.Type, def any) Param {
	return Param{Name: name, Type: t, Default: def}
}

// Func wraps fn as a provider. Parameter names and defaults cannot be
// recovered by reflection, so they are declared explicitly and validated
// against fn's signature: one Param per input, in order, excluding an
// optional leading context.Context which is injected automatically. fn
// must return T or (T, error). Func panics with an INVALID_PROVIDER
// error on structural misuse; wiring bugs are not recoverable at
// runtime.
func Func(name string, fn any, params ...Param) Provider {
	info, err := typekey.DescribeFunc(fn)
	if err != nil {
		panic(errInvalidProvider(name, err.Error()))
	}

	if len(params) != len(info.In) {
		panic(errInvalidProvider(name, fmt.Sprintf(
			"declared %d params, function takes %d", len(params), len(info.In))))
	}

	seen := make(map[string]bool, len(params))
	for i := range params {
		if params[i].Name == "" {
			panic(errInvalidProvider(name, fmt.Sprintf("param %d has no name", i)))
		}
		if seen[params[i].Name] {
			panic(errInvalidProvider(name, fmt.Sprintf("duplicate param %q", params[i].Name)))
		}
		seen[params[i].Name] = true

		if params[i].Type == nil {
			params[i].Type = info.In[i]
		} else if params[i].Type != info.In[i] {
			panic(errInvalidProvider(name, fmt.Sprintf(
				"param %q declared as %s, function takes %s",
				params[i].Name, typekey.Key(params[i].Type), typekey.Key(info.In[i]))))
		}
	}

	return &funcProvider{
		id:     uuid.NewString(),
		name:   name,
		fn:     reflectPkg.ValueOf(fn),
		info:   info,
		params: params,
	}
}

type funcProvider struct {
	id     string
	name   string
	fn     reflectPkg.Value
	info   typekey.FuncInfo
	params []Param
}

func (p *funcProvider) ID() string      { return p.id }
func (p *funcProvider) Name() string    { return p.name }
func (p *funcProvider) Params() []Param { return p.params }

func (p *funcProvider) Provide(ctx context.Context, args map[string]any) (any, error) {
	in := make([]reflectPkg.Value, 0, len(p.params)+1)
	if p.info.TakesContext {
		in = append(in, reflectPkg.ValueOf(ctx))
	}

	for _, prm := range p.params {
		v, ok := args[prm.Name]
		if !ok {
			if prm.Default != nil && !isDependencyDefault(prm.Default) {
				v = prm.Default
			} else {
				return nil, fmt.Errorf("missing argument %q", prm.Name)
			}
		}

		rv, err := argValue(v, prm)
		if err != nil {
			return nil, err
		}
		in = append(in, rv)
	}

	out := p.fn.Call(in)
	if p.info.ReturnsError && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}

	return out[0].Interface(), nil
}

func argValue(v any, prm Param) (reflectPkg.Value, error) {
	if v == nil {
		return reflectPkg.Zero(prm.Type), nil
	}

	rv := reflectPkg.ValueOf(v)
	if !rv.Type().AssignableTo(prm.Type) {
		return reflectPkg.Value{}, fmt.Errorf(
			"cannot assign %s to argument %q of type %s",
			rv.Type(), prm.Name, prm.Type)
	}
	return rv, nil
}

// isDependencyDefault reports whether def requests injection rather than
// carrying a plain default value.
func isDependencyDefault(def any) bool {
	if _, ok := def.(*Marker); ok {
		return true
	}
	_, ok := def.(ForeignMarker)
	return ok
}

// Value returns a provider that always yields v.
func Value(v any) Provider {
	return &valueProvider{
		id:   uuid.NewString(),
		name: fmt.Sprintf("value(%s)", typekey.KeyOf(v)),
		v:    v,
	}
}

type valueProvider struct {
	id   string
	name string
	v    any
}

func (p *valueProvider) ID() string      { return p.id }
func (p *valueProvider) Name() string    { return p.name }
func (p *valueProvider) Params() []Param { return nil }

func (p *valueProvider) Provide(context.Context, map[string]any) (any, error) {
	return p.v, nil
}

// Struct returns a provider constructing T by resolving its fields
// tagged with `loom`. T must be a struct or pointer to struct.
func Struct[T any]() Provider {
	return StructOf(reflectPkg.TypeOf((*T)(nil)).Elem())
}

// StructOf is the untyped form of Struct. Its identity derives from the
// type, so every StructOf over the same type is the same provider for
// caching and override purposes — matching how type-inferred
// dependencies unify.
func StructOf(t reflectPkg.Type) Provider {
	elem := t
	isPtr := elem != nil && elem.Kind() == reflectPkg.Ptr
	if isPtr {
		elem = elem.Elem()
	}
	if elem == nil || elem.Kind() != reflectPkg.Struct {
		panic(errInvalidProvider(typekey.Key(t), "struct provider requires a struct or pointer to struct type"))
	}

	fields, err := typekey.StructFields(elem, TagKey)
	if err != nil {
		panic(errInvalidProvider(typekey.Key(t), err.Error()))
	}

	params := make([]Param, 0, len(fields))
	for _, f := range fields {
		opts := []MarkerOption{}
		if f.Tag == "nocache" {
			opts = append(opts, NoCache())
		}
		params = append(params, Param{
			Name:    f.Name,
			Type:    f.Type,
			Default: NewMarker(nil, opts...),
		})
	}

	return &structProvider{
		id:     "struct:" + typekey.Key(t),
		name:   typekey.Key(t),
		typ:    elem,
		isPtr:  isPtr,
		fields: fields,
		params: params,
	}
}

type structProvider struct {
	id     string
	name   string
	typ    reflectPkg.Type
	isPtr  bool
	fields []typekey.Field
	params []Param
}

func (p *structProvider) ID() string      { return p.id }
func (p *structProvider) Name() string    { return p.name }
func (p *structProvider) Params() []Param { return p.params }

func (p *structProvider) Provide(_ context.Context, args map[string]any) (any, error) {
	val := reflectPkg.New(p.typ).Elem()

	for _, f := range p.fields {
		v, ok := args[f.Name]
		if !ok || v == nil {
			continue
		}

		fieldVal := val.Field(f.Index)
		instVal := reflectPkg.ValueOf(v)
		if !instVal.Type().AssignableTo(fieldVal.Type()) {
			return nil, fmt.Errorf(
				"cannot assign %s to field %s of type %s",
				instVal.Type(), f.Name, fieldVal.Type())
		}
		fieldVal.Set(instVal)
	}

	if p.isPtr {
		ptr := reflectPkg.New(p.typ)
		ptr.Elem().Set(val)
		return ptr.Interface(), nil
	}

	return val.Interface(), nil
}

// zeroOf backs type inference for non-struct declared types: the
// provider yields the type's zero value, the closest analogue of
// invoking a niladic constructor. Identity derives from the type so
// repeated inferences unify.
func zeroOf(t reflectPkg.Type) Provider {
	return &zeroProvider{
		id:   "zero:" + typekey.Key(t),
		name: typekey.Key(t),
		typ:  t,
	}
}

type zeroProvider struct {
	id   string
	name string
	typ  reflectPkg.Type
}

func (p *zeroProvider) ID() string      { return p.id }
func (p *zeroProvider) Name() string    { return p.name }
func (p *zeroProvider) Params() []Param { return nil }

func (p *zeroProvider) Provide(context.Context, map[string]any) (any, error) {
	return reflectPkg.Zero(p.typ).Interface(), nil
}
