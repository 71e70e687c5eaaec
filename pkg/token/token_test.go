package token

import (
	"encoding/base64"
	"testing"
)

func TestGenerate(t *testing.T) {
	tok, err := Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(tok) != 43 {
		t.Errorf("len(Generate()) = %d, want 43", len(tok))
	}
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		t.Fatalf("token is not base64url: %v", err)
	}
	if len(raw) != DefaultLength {
		t.Errorf("decoded length = %d, want %d", len(raw), DefaultLength)
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		tok, err := Generate()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token after %d iterations", i)
		}
		seen[tok] = struct{}{}
	}
}

func TestGenerateWithLength(t *testing.T) {
	tests := []struct {
		length  int
		wantLen int
	}{
		{16, 22},
		{32, 43},
		{64, 86},
	}
	for _, tt := range tests {
		tok, err := GenerateWithLength(tt.length)
		if err != nil {
			t.Fatalf("GenerateWithLength(%d) error = %v", tt.length, err)
		}
		if len(tok) != tt.wantLen {
			t.Errorf("GenerateWithLength(%d) len = %d, want %d", tt.length, len(tok), tt.wantLen)
		}
	}
}

func TestEqual(t *testing.T) {
	if !Equal("secret", "secret") {
		t.Error("Equal() = false for identical strings")
	}
	if Equal("secret", "Secret") {
		t.Error("Equal() = true for different strings")
	}
	if Equal("secret", "secret-longer") {
		t.Error("Equal() = true for different lengths")
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("abc")
	if len(a) != 12 {
		t.Errorf("len(Fingerprint()) = %d, want 12", len(a))
	}
	if a != Fingerprint("abc") {
		t.Error("Fingerprint() not deterministic")
	}
	if a == Fingerprint("abd") {
		t.Error("Fingerprint() collided for different inputs")
	}
}
