package engine

import (
	"time"

	"github.com/dmitrymomot/busengine/core/gc"
	"github.com/dmitrymomot/busengine/core/lock"
	redisconn "github.com/dmitrymomot/busengine/integration/database/redis"
)

// Config holds engine settings loadable from the environment with
// config.Load. The store connection is configured separately.
type Config struct {
	Namespace       string        `env:"BUS_NAMESPACE"`
	GCInterval      time.Duration `env:"BUS_GC_INTERVAL" envDefault:"60s"`
	LockTimeout     time.Duration `env:"BUS_LOCK_TIMEOUT" envDefault:"120s"`
	GCConcurrency   int           `env:"BUS_GC_CONCURRENCY" envDefault:"8"`
	ShutdownTimeout time.Duration `env:"BUS_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	Redis redisconn.Config
}

// DefaultConfig mirrors the envDefault tags.
func DefaultConfig() Config {
	return Config{
		GCInterval:      gc.DefaultInterval,
		LockTimeout:     lock.DefaultTimeout,
		GCConcurrency:   gc.DefaultConcurrency,
		ShutdownTimeout: 30 * time.Second,
		Redis:           redisconn.DefaultConfig(),
	}
}

// Options translates the config into engine options.
func (c Config) Options() []Option {
	return []Option{
		WithNamespace(c.Namespace),
		WithGCInterval(c.GCInterval),
		WithLockTimeout(c.LockTimeout),
		WithGCConcurrency(c.GCConcurrency),
		WithShutdownTimeout(c.ShutdownTimeout),
	}
}
