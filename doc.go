// Package loom resolves dependency graphs declared through parameter
// markers.
//
// A provider declares its parameters; a parameter whose default is a
// Marker pulls its value from another provider. BuildGraph walks those
// declarations into an immutable graph, and a resolution context walks
// the graph in topological order, invoking each provider at most once
// and handing the target its arguments.
//
// # Quick Start
//
// Declare providers and resolve a target:
//
//	db := loom.Func("database", openDatabase,
//	    loom.P("dsn", "postgres://localhost"),
//	)
//
//	handler := loom.Func("handler", newHandler,
//	    loom.P("db", loom.NewMarker(db)),
//	)
//
//	out, err := loom.Call(ctx, handler)
//
// # Markers
//
// A Marker is a parameter default that names where the value comes
// from:
//
//	loom.NewMarker(db)                          // resolve db, cache the value
//	loom.NewMarker(db, loom.NoCache())          // fresh value, isolated subgraph
//	loom.NewMarker(nil)                         // infer a provider from the parameter type
//	loom.NewMarker(db, loom.StaticArgs(m))      // pin some arguments
//
// Cached markers share one value per provider identity within a
// context. A NoCache marker gets a private subgraph: nothing it
// resolves is shared with the rest of the pass.
//
// # Providers
//
// Providers wrap the ways a value can be produced:
//
//	loom.Func("name", fn, params...)  // a function, params declared explicitly
//	loom.Value(v)                     // an existing value
//	loom.Struct[*Config]()            // build a struct from its tagged fields
//
// Struct providers inject fields tagged `loom:""`; tag a field
// `loom:"nocache"` for an isolated value.
//
// # Graphs
//
// BuildGraph analyzes a target without invoking anything:
//
//	g, err := loom.BuildGraph(handler)
//	g.PrintGraph()     // ASCII to stdout
//	g.PrintGraphDOT()  // Graphviz DOT to stdout
//
// A graph is immutable and reusable; a GraphCache memoizes graphs by
// target identity.
//
// # Resolution
//
// A context resolves a graph once:
//
//	c, err := g.SyncContext()
//	args, err := c.Resolve(ctx)
//	defer c.Close(ctx, nil)
//
// AsyncContext resolves independent providers concurrently, level by
// level:
//
//	c, err := g.AsyncContext(loom.WithConcurrency(8))
//
// Run wraps resolve, invoke, and close:
//
//	err := c.Run(ctx, func(ctx context.Context, args map[string]any) error {
//	    return serve(args)
//	})
//
// # Scoped Resources
//
// A provider returning a Resource (or an io.Closer) is entered on
// resolution and released when the context closes, in strict reverse
// acquisition order:
//
//	loom.Func("session", func(dsn string) (*loom.ResourceFuncs, error) {
//	    return &loom.ResourceFuncs{
//	        AcquireFunc: func(ctx context.Context) (any, error) { return open(dsn) },
//	        ReleaseFunc: func(ctx context.Context, cause error) error { return cleanup(cause) },
//	    }, nil
//	}, loom.P("dsn", "postgres://localhost"))
//
// By default the error that ended the pass is forwarded to each
// release; WithExceptionPropagation(false) releases with a nil cause
// and logs release failures instead of returning them.
//
// # Generic Providers
//
// A provider can defer a dependency's concrete type to its caller:
//
//	repo := loom.Func("repository", newRepository,
//	    loom.P("store", loom.NewMarker(loom.TypeParam("S"))),
//	)
//
//	loom.Parametrized(repo, loom.Arg("S", postgresStore))
//
// The placeholder is substituted during graph construction; an
// unparametrized placeholder fails the build.
//
// # Overrides
//
// Substitute providers without touching declarations:
//
//	o := loom.NewOverrides().Set(db, fakeDB)
//	g, err := loom.BuildGraph(handler, loom.WithOverrides(o))
//
// Context overrides rebuild the graph for one pass:
//
//	c, err := g.SyncContext(loom.WithContextOverrides(o))
//
// # Errors
//
// Failures carry a code and the provider involved:
//
//	if loom.IsCycleDetected(err) { ... }
//	if loom.IsUnresolvedDependency(err) { ... }
//
// # Observability
//
// Hooks observe builds, resolutions, and teardowns:
//
//	g, _ := loom.BuildGraph(handler,
//	    loom.WithBuildObserver(func(target string, nodes int, d time.Duration, err error) {
//	        metrics.RecordBuild(target, nodes, d, err)
//	    }),
//	)
//
//	c, _ := g.SyncContext(
//	    loom.WithResolveObserver(func(provider string, cached bool, d time.Duration, err error) {
//	        metrics.RecordResolve(provider, cached, d, err)
//	    }),
//	    loom.WithTeardownObserver(func(provider string, d time.Duration, err error) {
//	        metrics.RecordTeardown(provider, d, err)
//	    }),
//	)
package loom
