// Package constants centralizes default values shared across packages.
package constants

import "time"

// API Server Constants
const (
	// DefaultAPIHost is the default API server host
	DefaultAPIHost = "localhost"

	// DefaultAPIPort is the default API server port
	DefaultAPIPort = 8080

	// MinPort is the minimum valid port number
	MinPort = 1

	// MaxPort is the maximum valid port number
	MaxPort = 65535

	// DefaultReadTimeout is the default HTTP read timeout
	DefaultReadTimeout = 15 * time.Second

	// DefaultWriteTimeout is the default HTTP write timeout
	DefaultWriteTimeout = 15 * time.Second

	// DefaultIdleTimeout is the default HTTP idle timeout
	DefaultIdleTimeout = 60 * time.Second

	// DefaultShutdownTimeout is the default graceful shutdown timeout
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultMaxHeaderBytes is the default maximum request header size (1 MB)
	DefaultMaxHeaderBytes = 1 << 20 // 1 MB

	// DefaultRateLimitPerSecond is the default rate limit (requests per second)
	DefaultRateLimitPerSecond = 1000

	// DefaultRateLimitBurst is the default rate limit burst size
	DefaultRateLimitBurst = 2000
)

// Store Constants
const (
	// DefaultCacheSize is the default cache size in MB for the store
	DefaultCacheSize = 64 // MB

	// DefaultMaxOpenFiles is the default maximum number of open files
	DefaultMaxOpenFiles = 500
)

// Index Constants
const (
	// DefaultSyncInterval is the default periodic sync interval
	DefaultSyncInterval = 30 * time.Second

	// DefaultIndexFileName is the default index database file name
	DefaultIndexFileName = "starklens-index.db"
)

// Pagination Constants
const (
	// DefaultPaginationLimit is the default pagination limit
	DefaultPaginationLimit = 20

	// DefaultMaxPaginationLimit is the default maximum pagination limit
	DefaultMaxPaginationLimit = 100

	// MinPaginationLimit is the minimum pagination limit
	MinPaginationLimit = 1
)

// Query Constants
const (
	// DefaultQueryTimeout is the default timeout for index queries
	DefaultQueryTimeout = 30 * time.Second
)
