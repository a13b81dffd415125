package loom

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TypeArg binds one declared type parameter of a parametrized provider
// to a concrete provider.
type TypeArg struct {
	Param    string
	Provider Provider
}

// Arg builds a TypeArg.
func Arg(param string, p Provider) TypeArg {
	return TypeArg{Param: param, Provider: p}
}

// Parametrized wraps base with concrete type arguments. Parameters of
// base whose markers use TypeParam placeholders are substituted against
// these arguments during graph construction. The wrapper delegates
// introspection and invocation to base; only the parametrization is new.
func Parametrized(base Provider, args ...TypeArg) Provider {
	if base == nil {
		panic(errInvalidProvider("parametrized", "base provider is nil"))
	}
	if len(args) == 0 {
		panic(errInvalidProvider(base.Name(), "parametrized provider needs at least one type argument"))
	}
	for _, a := range args {
		if a.Param == "" || a.Provider == nil {
			panic(errInvalidProvider(base.Name(), "type argument needs a parameter name and a provider"))
		}
	}

	names := make([]string, len(args))
	for i, a := range args {
		names[i] = a.Provider.Name()
	}

	return &parametrizedProvider{
		id:   uuid.NewString(),
		name: fmt.Sprintf("%s[%s]", base.Name(), strings.Join(names, ", ")),
		base: base,
		args: args,
	}
}

// parametrized is what the generic resolver looks for on a parent
// provider: the declared type-parameter list and the concrete providers
// bound at the use site, positionally aligned.
type parametrized interface {
	TypeParams() []string
	TypeArgs() []Provider
}

type parametrizedProvider struct {
	id   string
	name string
	base Provider
	args []TypeArg
}

func (p *parametrizedProvider) ID() string      { return p.id }
func (p *parametrizedProvider) Name() string    { return p.name }
func (p *parametrizedProvider) Params() []Param { return p.base.Params() }

func (p *parametrizedProvider) Provide(ctx context.Context, args map[string]any) (any, error) {
	return p.base.Provide(ctx, args)
}

func (p *parametrizedProvider) TypeParams() []string {
	out := make([]string, len(p.args))
	for i, a := range p.args {
		out[i] = a.Param
	}
	return out
}

func (p *parametrizedProvider) TypeArgs() []Provider {
	out := make([]Provider, len(p.args))
	for i, a := range p.args {
		out[i] = a.Provider
	}
	return out
}

// TypeParam is an unresolved generic placeholder. It is only legal as a
// marker provider inside a provider that is later wrapped with
// Parametrized; graph construction substitutes it with the concrete
// provider bound to the same parameter name.
func TypeParam(name string) Provider {
	if name == "" {
		panic(errInvalidProvider("typeparam", "type parameter needs a name"))
	}
	return &typeParamProvider{
		id:          uuid.NewString(),
		placeholder: name,
	}
}

type typeParamProvider struct {
	id          string
	placeholder string
}

func (p *typeParamProvider) ID() string      { return p.id }
func (p *typeParamProvider) Name() string    { return "$" + p.placeholder }
func (p *typeParamProvider) Params() []Param { return nil }

func (p *typeParamProvider) Provide(context.Context, map[string]any) (any, error) {
	return nil, errUnresolvedGenericParameter(p.placeholder, "", "")
}

// resolveOrigin substitutes a type-placeholder provider using the parent
// node's parametrization. The parent must exist and expose matching
// concrete type arguments; anything else is a construction-time failure.
func resolveOrigin(n *node, arena []*node) error {
	tp, ok := n.provider.(*typeParamProvider)
	if !ok {
		return nil
	}

	if n.parent < 0 {
		return errUnresolvedGenericParameter(tp.placeholder, n.paramName, "<root>")
	}

	parent := arena[n.parent]
	pp, ok := parent.provider.(parametrized)
	if !ok {
		return errUnresolvedGenericParameter(tp.placeholder, n.paramName, parent.provider.Name())
	}

	params := pp.TypeParams()
	targs := pp.TypeArgs()
	for i, name := range params {
		if name == tp.placeholder && i < len(targs) {
			n.provider = targs[i]
			return nil
		}
	}

	return errUnresolvedGenericParameter(tp.placeholder, n.paramName, parent.provider.Name())
}
