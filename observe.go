package loom

import (
	"time"
)

// BuildHook observes one graph construction: the target's name, the node
// count of the finished graph (0 on failure), and the outcome.
type BuildHook func(target string, nodes int, duration time.Duration, err error)

// ResolveHook observes one node resolution. cached reports a cache hit,
// in which case no provider was invoked and duration covers the lookup
// only.
type ResolveHook func(provider string, cached bool, duration time.Duration, err error)

// TeardownHook observes one scoped-resource release.
type TeardownHook func(provider string, duration time.Duration, err error)
