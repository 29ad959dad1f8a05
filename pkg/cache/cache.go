// Package cache stores rendered diagram artifacts.
//
// Rendering is a pure function of the DOT text, the output format and the
// engine that produced it, so the [Renderer] keys artifacts by a hash of all
// three and skips the layout engine on a hit. Three backends implement
// [Cache]:
//
//   - [FileCache]: one JSON entry per key under a directory (CLI default)
//   - [RedisCache]: shared cache for `archviz serve` deployments
//   - [NullCache]: never stores anything (--no-cache)
//
// Keys are produced by a [Keyer]; [NewScopedKeyer] prefixes them so several
// tenants can share one backend.
//
// [Renderer]: github.com/matzehuels/archviz/pkg/render.Renderer
package cache

import (
	"context"
	"time"
)

// ArtifactTTL is how long rendered artifacts are kept.
const ArtifactTTL = 7 * 24 * time.Hour

// Cache is a byte-oriented key/value store with per-entry expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the stored value and true, or nil and false on a miss.
	// Expired entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 keeps the entry until deleted.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
