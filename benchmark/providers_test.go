package benchmark

import (
	"context"
	"fmt"
	"time"

	"github.com/loomdi/loom"
)

func loomSingleton() loom.Provider {
	cfg := loom.Func("config", func() *Config { return &Config{Host: "localhost", Port: 8080} })
	return loom.Func("app", func(cfg *Config) *Config { return cfg },
		loom.P("cfg", loom.NewMarker(cfg)))
}

// loomChain mirrors the five-service shape the other frameworks register:
// config and logger feed a database and a cache, which feed a repository,
// which feeds the service. The logger markers dedupe to a single node.
func loomChain() loom.Provider {
	cfg := loom.Func("config", func() *Config { return &Config{Host: "localhost", Port: 8080} })
	logger := loom.Func("logger", func() *Logger { return &Logger{Level: "info"} })
	db := loom.Func("database", func(cfg *Config, log *Logger) *Database {
		return &Database{Config: cfg, Logger: log}
	}, loom.P("cfg", loom.NewMarker(cfg)), loom.P("log", loom.NewMarker(logger)))
	cache := loom.Func("cache", func(log *Logger) *Cache {
		return &Cache{Logger: log}
	}, loom.P("log", loom.NewMarker(logger)))
	repo := loom.Func("repository", func(db *Database, cache *Cache) *Repository {
		return &Repository{DB: db, Cache: cache}
	}, loom.P("db", loom.NewMarker(db)), loom.P("cache", loom.NewMarker(cache)))
	return loom.Func("service", func(repo *Repository, log *Logger) *Service {
		return &Service{Repo: repo, Logger: log}
	}, loom.P("repo", loom.NewMarker(repo)), loom.P("log", loom.NewMarker(logger)))
}

// loomWide fans ten independent providers into one target so async
// resolution has a full level to parallelize.
func loomWide() loom.Provider {
	params := make([]loom.Param, 10)
	for j := 0; j < 10; j++ {
		p := loom.Func(fmt.Sprintf("svc_%d", j), func() *Config { return &Config{Port: j} })
		params[j] = loom.P(fmt.Sprintf("a%d", j), loom.NewMarker(p))
	}
	return loom.Func("app",
		func(a0, a1, a2, a3, a4, a5, a6, a7, a8, a9 *Config) int { return a0.Port },
		params...)
}

func sleepResource(v int, work time.Duration) loom.ResourceFuncs {
	return loom.ResourceFuncs{
		AcquireFunc: func(context.Context) (any, error) {
			if work > 0 {
				time.Sleep(work)
			}
			return v, nil
		},
		ReleaseFunc: func(context.Context, error) error {
			if work > 0 {
				time.Sleep(work)
			}
			return nil
		},
	}
}

// loomScopedChain links count scoped resources end to end, forcing strictly
// ordered acquisition and reverse-ordered release.
func loomScopedChain(count int, work time.Duration) loom.Provider {
	prev := loom.Func("res_0", func() loom.ResourceFuncs { return sleepResource(0, work) })
	for j := 1; j < count; j++ {
		dep := prev
		prev = loom.Func(fmt.Sprintf("res_%d", j), func(prev any) loom.ResourceFuncs {
			return sleepResource(j, work)
		}, loom.P("prev", loom.NewMarker(dep)))
	}
	return loom.Func("app", func(last any) any { return last },
		loom.P("last", loom.NewMarker(prev)))
}

// loomScopedWide fans ten independent scoped resources into one target.
func loomScopedWide(work time.Duration) loom.Provider {
	params := make([]loom.Param, 10)
	for j := 0; j < 10; j++ {
		p := loom.Func(fmt.Sprintf("res_%d", j), func() loom.ResourceFuncs {
			return sleepResource(j, work)
		})
		params[j] = loom.P(fmt.Sprintf("a%d", j), loom.NewMarker(p))
	}
	return loom.Func("app",
		func(a0, a1, a2, a3, a4, a5, a6, a7, a8, a9 any) any { return a0 },
		params...)
}
