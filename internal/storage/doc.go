// Package storage persists the session store.
//
// Two backends implement service.SessionRepository:
//
//   - FileSessionStore: one JSON document written atomically (tmp, fsync,
//     rename), optionally sealed with pkg/crypto/adaptive.
//   - KVSessionStore: one record per session in an embedded KV engine
//     (Badger), replaced as a batch on every save.
package storage
