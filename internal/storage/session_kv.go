package storage

import (
	"context"
	"fmt"

	gojson "github.com/goccy/go-json"

	"github.com/yndnr/statehttpd/internal/core/domain"
)

// sessionKeyPrefix namespaces session records in the KV engine.
const sessionKeyPrefix = "session/"

// KVSessionStore persists sessions as one KV record each.
type KVSessionStore struct {
	kv KVEngine
}

// NewKVSessionStore wraps a KV engine.
func NewKVSessionStore(kv KVEngine) *KVSessionStore {
	return &KVSessionStore{kv: kv}
}

// Load scans every session record.
func (s *KVSessionStore) Load(ctx context.Context) ([]*domain.Session, error) {
	var (
		out     []*domain.Session
		scanErr error
	)
	err := s.kv.Scan(ctx, []byte(sessionKeyPrefix), func(key, value []byte) bool {
		var r sessionRecord
		if err := gojson.Unmarshal(value, &r); err != nil {
			scanErr = fmt.Errorf("decode session %q: %w", key, err)
			return false
		}
		sess, err := r.session()
		if err != nil {
			scanErr = err
			return false
		}
		out = append(out, sess)
		return true
	})
	if err != nil {
		return nil, err
	}
	if scanErr != nil {
		return nil, scanErr
	}
	return out, nil
}

// Save replaces all session records in one transaction.
func (s *KVSessionStore) Save(ctx context.Context, sessions []*domain.Session) error {
	entries := make(map[string][]byte, len(sessions))
	for _, sess := range sessions {
		data, err := gojson.Marshal(toRecord(sess))
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
		entries[sessionKeyPrefix+sess.ID] = data
	}
	return s.kv.ReplacePrefix(ctx, []byte(sessionKeyPrefix), entries)
}
