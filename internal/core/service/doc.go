// Package service provides the domain services for statehttpd.
//
// SessionStore owns the in-memory session map: creation, lazy-expiring
// lookup, deletion and persistence through a SessionRepository. All map
// operations serialize on a single store lock; repository I/O always runs
// against a snapshot taken under that lock and never while holding it.
package service
