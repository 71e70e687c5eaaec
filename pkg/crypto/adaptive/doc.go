// Package adaptive provides authenticated encryption for data at rest.
//
// The cipher is chosen from the hardware: AES-256-GCM where the CPU has AES
// instructions, ChaCha20-Poly1305 otherwise. Sealed payloads carry a small
// envelope header naming the algorithm, so a file written on one machine
// opens on another regardless of which cipher that machine would pick.
//
// Usage:
//
//	key, err := adaptive.KeyFromHex(cfg.EncryptionKey)
//	sealed, err := adaptive.Seal(key, plaintext, aad)
//	plaintext, err := adaptive.Open(key, sealed, aad)
package adaptive
