// Package cmap provides a concurrent-safe sharded map with string keys.
//
// Keys are spread over a power-of-two number of shards by their murmur3
// hash; each shard has its own RWMutex, so writers to different shards do
// not contend.
//
//	m := cmap.New[string, *rate.Limiter]()
//	lim := m.GetOrCreate(ip, func() *rate.Limiter { return rate.NewLimiter(10, 10) })
//
// Range and DeleteFunc lock one shard at a time, so they do not observe a
// single consistent snapshot of the whole map.
package cmap
