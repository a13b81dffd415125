package loom

import (
	"context"
	"io"
)

// Resource is the scoped-resource protocol: a provider result exposing
// paired enter/exit operations. The resolution context acquires the
// resource immediately after the provider returns and injects the
// acquired value; every acquired resource is released in strict reverse
// order of acquisition when the context completes, success or failure.
//
// Release receives the resolution or run error as cause when exception
// propagation is enabled, nil otherwise.
type Resource interface {
	Acquire(ctx context.Context) (any, error)
	Release(ctx context.Context, cause error) error
}

// ResourceFuncs adapts two functions into a Resource.
type ResourceFuncs struct {
	AcquireFunc func(ctx context.Context) (any, error)
	ReleaseFunc func(ctx context.Context, cause error) error
}

func (r ResourceFuncs) Acquire(ctx context.Context) (any, error) {
	if r.AcquireFunc == nil {
		return nil, nil
	}
	return r.AcquireFunc(ctx)
}

func (r ResourceFuncs) Release(ctx context.Context, cause error) error {
	if r.ReleaseFunc == nil {
		return nil
	}
	return r.ReleaseFunc(ctx, cause)
}

// asResource recognizes scoped results. io.Closer values participate in
// ordered teardown too: the value itself is injected and Close runs at
// release, with the cause unavailable to it.
func asResource(v any) (Resource, bool) {
	switch r := v.(type) {
	case Resource:
		return r, true
	case io.Closer:
		return closerResource{c: r}, true
	default:
		return nil, false
	}
}

type closerResource struct {
	c io.Closer
}

func (r closerResource) Acquire(context.Context) (any, error) {
	return r.c, nil
}

func (r closerResource) Release(context.Context, error) error {
	return r.c.Close()
}
