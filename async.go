package loom

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// AsyncContext resolves a graph level by level, running every provider
// within a level concurrently. Providers only ever race against
// providers they share no dependency path with, so values they consume
// are always resolved before they start. Like SyncContext it is
// single-use.
type AsyncContext struct {
	r *resolution
}

func newAsyncContext(g *Graph, cfg *contextConfig) *AsyncContext {
	return &AsyncContext{r: newResolution(g, cfg)}
}

// Resolve schedules each dependency level on an errgroup, earlier
// levels first, and returns the target's arguments keyed by parameter
// name. The first provider failure cancels the in-flight level; already
// entered scoped resources are then released under a fresh context, so
// cancellation never strands a resource.
func (c *AsyncContext) Resolve(ctx context.Context) (map[string]any, error) {
	if err := c.r.markConsumed(); err != nil {
		return nil, err
	}

	if err := c.resolveLevels(ctx); err != nil {
		if terr := c.r.closeWith(context.Background(), err); terr != nil {
			c.r.cfg.logger.Warn("teardown after failed resolution",
				slog.Any("error", terr))
		}
		return nil, err
	}

	return c.r.kwargs(), nil
}

func (c *AsyncContext) resolveLevels(ctx context.Context) error {
	for _, level := range c.r.graph.levels {
		g, gctx := errgroup.WithContext(ctx)
		if c.r.cfg.concurrency > 0 {
			g.SetLimit(c.r.cfg.concurrency)
		}

		for _, idx := range level {
			if c.r.graph.arena[idx].parent < 0 {
				continue
			}
			idx := idx
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return c.r.resolveNode(gctx, idx)
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the entered scoped resources in reverse acquisition
// order, forwarding cause to each release when exception propagation is
// enabled. Closing twice is a no-op.
func (c *AsyncContext) Close(ctx context.Context, cause error) error {
	return c.r.closeWith(ctx, cause)
}

// Run resolves the graph, hands the arguments to fn, and always closes
// the context afterwards, forwarding fn's error as the teardown cause.
func (c *AsyncContext) Run(ctx context.Context, fn func(ctx context.Context, args map[string]any) error) error {
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
