package loom

import "log/slog"

type BuildOption func(*buildConfig)

type buildConfig struct {
	overrides *Overrides
	logger    *slog.Logger
	onBuild   []BuildHook
}

func newBuildConfig(opts []BuildOption) *buildConfig {
	cfg := &buildConfig{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithOverrides substitutes providers during graph construction.
func WithOverrides(o *Overrides) BuildOption {
	return func(cfg *buildConfig) {
		cfg.overrides = o
	}
}

func WithBuildLogger(logger *slog.Logger) BuildOption {
	return func(cfg *buildConfig) {
		cfg.logger = logger
	}
}

func WithBuildObserver(hook BuildHook) BuildOption {
	return func(cfg *buildConfig) {
		cfg.onBuild = append(cfg.onBuild, hook)
	}
}

type ContextOption func(*contextConfig)

type contextConfig struct {
	initial     map[Provider]any
	overrides   *Overrides
	propagate   bool
	concurrency int
	logger      *slog.Logger
	onResolve   []ResolveHook
	onTeardown  []TeardownHook
}

func newContextConfig(opts []ContextOption) *contextConfig {
	cfg := &contextConfig{
		propagate: true,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithInitialCache seeds resolved values per provider before the first
// node runs. Seeded providers are never invoked; markers carrying static
// args bypass the seed since their cache key differs.
func WithInitialCache(values map[Provider]any) ContextOption {
	return func(cfg *contextConfig) {
		cfg.initial = values
	}
}

// WithContextOverrides rebuilds the graph with the substitutions applied
// before resolving. The graph the context was created from stays intact.
func WithContextOverrides(o *Overrides) ContextOption {
	return func(cfg *contextConfig) {
		cfg.overrides = o
	}
}

// WithExceptionPropagation controls whether a resolution or run error is
// forwarded to each scoped resource's release. Enabled by default;
// disabled, resources release with a nil cause and secondary release
// failures are logged instead of raised.
func WithExceptionPropagation(propagate bool) ContextOption {
	return func(cfg *contextConfig) {
		cfg.propagate = propagate
	}
}

// WithConcurrency caps how many providers an async context runs at once.
// Zero or negative means no cap beyond the graph's own level structure.
func WithConcurrency(n int) ContextOption {
	return func(cfg *contextConfig) {
		cfg.concurrency = n
	}
}

func WithResolveLogger(logger *slog.Logger) ContextOption {
	return func(cfg *contextConfig) {
		cfg.logger = logger
	}
}

func WithResolveObserver(hook ResolveHook) ContextOption {
	return func(cfg *contextConfig) {
		cfg.onResolve = append(cfg.onResolve, hook)
	}
}

func WithTeardownObserver(hook TeardownHook) ContextOption {
	return func(cfg *contextConfig) {
		cfg.onTeardown = append(cfg.onTeardown, hook)
	}
}
