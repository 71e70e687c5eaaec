// Package token provides session token generation and comparison helpers.
//
// Tokens are 32 bytes from crypto/rand, Base64 RawURL encoded (43 characters).
// Secrets are compared in constant time and only ever logged as fingerprints.
package token
