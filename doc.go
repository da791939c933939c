// Package busengine is the shared-state backend of a publish/subscribe bus
// that runs as several cooperating processes over one Redis store.
//
// Every process runs an engine against the same namespace. The store knows
// which clients exist, which channels they subscribe to and which messages wait
// for them; notifications over Redis pub/sub wake the process that holds a
// client's connection, and a lease-locked garbage collector removes clients
// that stopped sending heartbeats.
//
// # Getting Documentation
//
//	go doc github.com/dmitrymomot/busengine/core/engine
//	go doc -all github.com/dmitrymomot/busengine/core/lock
//
// # Engine
//
//	github.com/dmitrymomot/busengine/core/engine       - Engine, Server contract, message envelope, channel expansion
//	github.com/dmitrymomot/busengine/core/presence     - Client registry with heartbeat scores and liveness windows
//	github.com/dmitrymomot/busengine/core/subscription - Two-way client/channel index
//	github.com/dmitrymomot/busengine/core/mailbox      - Per-client FIFO message queues with atomic drain
//	github.com/dmitrymomot/busengine/core/notify       - Message and close notifications over pub/sub
//	github.com/dmitrymomot/busengine/core/lock         - Best-effort lease lock with readback takeover
//	github.com/dmitrymomot/busengine/core/gc           - Periodic eviction of stale clients
//	github.com/dmitrymomot/busengine/core/keyspace     - Namespaced key and topic names
//
// # Operations
//
//	github.com/dmitrymomot/busengine/core/config   - Type-safe environment variable loading
//	github.com/dmitrymomot/busengine/core/logger   - slog construction and attribute helpers
//	github.com/dmitrymomot/busengine/core/metrics  - Prometheus collectors for engine activity
//	github.com/dmitrymomot/busengine/core/health   - Liveness and readiness HTTP handlers
//	github.com/dmitrymomot/busengine/core/server   - Ops HTTP server with graceful shutdown
//	github.com/dmitrymomot/busengine/cmd/busengine - Maintenance daemon: subscription, GC, health checks, metrics
//
// # Integrations and Utilities
//
//	github.com/dmitrymomot/busengine/integration/database/redis - Connection config, retrying connect, healthcheck
//	github.com/dmitrymomot/busengine/pkg/async                  - Futures and bounded fan-out
package busengine
