package cache

import "time"

// Cache holds short-lived feed pages and snapshots. Values are JSON shaped:
// GetInto decodes them into dst, which must be a pointer.
//
// Generation and Bump give a namespace a counter that readers fold into
// their keys, so one Bump retires every key of the namespace at once. A
// Generation error means the counter is unknown and keys must not be built
// from it.
type Cache interface {
	Get(key string) (interface{}, bool)
	GetInto(key string, dst interface{}) bool
	Set(key string, value interface{})
	SetWithTTL(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	Clear()

	Generation(namespace string) (int64, error)
	Bump(namespace string) (int64, error)
}
