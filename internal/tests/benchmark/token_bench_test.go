package benchmark

import (
	"testing"

	"github.com/yndnr/statehttpd/pkg/token"
)

// BenchmarkTokenGenerate benchmarks session identifier generation.
func BenchmarkTokenGenerate(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := token.Generate(); err != nil {
			b.Fatalf("Generate failed: %v", err)
		}
	}
}

// BenchmarkTokenEqual benchmarks constant-time credential comparison.
func BenchmarkTokenEqual(b *testing.B) {
	tok, _ := token.Generate()
	other := []byte(tok)
	other[len(other)-1] ^= 1

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		token.Equal(tok, string(other))
	}
}

// BenchmarkTokenFingerprint benchmarks the log-safe session fingerprint.
func BenchmarkTokenFingerprint(b *testing.B) {
	tok, _ := token.Generate()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		token.Fingerprint(tok)
	}
}
