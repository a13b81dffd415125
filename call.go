package loom

import (
	"context"
	"errors"
)

// Call builds target's graph, resolves it sequentially, invokes target
// with the resolved arguments, and closes the context, forwarding the
// invocation error as the teardown cause. It is the one-shot shorthand
// for BuildGraph + SyncContext + Resolve + Provide + Close.
func Call(ctx context.Context, target Provider, opts ...ContextOption) (any, error) {
	g, err := BuildGraph(target)
	if err != nil {
		return nil, err
	}
	c, err := g.SyncContext(opts...)
	if err != nil {
		return nil, err
	}
	return callWith(ctx, target, c.Resolve, c.Close)
}

// CallAsync is Call with level-parallel resolution.
func CallAsync(ctx context.Context, target Provider, opts ...ContextOption) (any, error) {
	g, err := BuildGraph(target)
	if err != nil {
		return nil, err
	}
	c, err := g.AsyncContext(opts...)
	if err != nil {
		return nil, err
	}
	return callWith(ctx, target, c.Resolve, c.Close)
}

func callWith(
	ctx context.Context,
	target Provider,
	resolve func(context.Context) (map[string]any, error),
	finish func(context.Context, error) error,
) (any, error) {
	args, err := resolve(ctx)
	if err != nil {
		return nil, err
	}

	v, err := target.Provide(ctx, args)
	if err != nil {
		err = errProviderInvocation(target.Name(), err)
	}

	if cerr := finish(ctx, err); cerr != nil {
		return v, errors.Join(err, cerr)
	}
	return v, err
}
