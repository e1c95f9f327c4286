package cache

import "time"

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Purge removes every entry
	Purge()

	// Size returns the current number of items in the cache
	Size() int
}

// Clock returns the current time. Tests substitute a fixed or stepped clock.
type Clock func() time.Time

// Stats is a point-in-time snapshot of cache usage.
type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
}
