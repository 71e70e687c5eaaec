// Package cmap provides a sharded, string-keyed concurrent map.
//
//	m := cmap.New[*rate.Limiter]()
//	lim := m.GetOrCreate(ip, func() *rate.Limiter { return rate.NewLimiter(r, b) })
//
// Per-shard RWMutex; reads take RLock, writes take Lock.
package cmap
