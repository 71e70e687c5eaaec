package storage

import (
	"context"
	"time"
)

// KVEngine is the embedded key-value store behind KVSessionStore. Sessions
// are written as a full snapshot under one key prefix, so the engine only
// needs prefix reads and atomic prefix replacement.
type KVEngine interface {
	// Scan calls fn for each key under prefix until fn returns false.
	Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error

	// ReplacePrefix atomically deletes every key under prefix and writes
	// entries in its place.
	ReplacePrefix(ctx context.Context, prefix []byte, entries map[string][]byte) error

	Close() error
}

// KVConfig configures the Badger engine.
type KVConfig struct {
	Dir string

	// InMemory keeps everything in memory; Dir is ignored. Tests only.
	InMemory bool

	// GCInterval is the period of value log GC. Zero disables it.
	GCInterval time.Duration

	// GCDiscardRatio is passed to RunValueLogGC.
	GCDiscardRatio float64

	SyncWrites bool
}

// DefaultKVConfig returns the configuration used for a session directory.
func DefaultKVConfig(dir string) KVConfig {
	return KVConfig{
		Dir:            dir,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
		SyncWrites:     true,
	}
}
