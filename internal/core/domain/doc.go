// Package domain defines the core domain models for statehttpd.
//
// Domain models are plain values without IO dependencies:
//
//   - Session: cookie-referenced login session with idle expiry
//   - Errors: coded errors that map onto HTTP statuses
package domain
