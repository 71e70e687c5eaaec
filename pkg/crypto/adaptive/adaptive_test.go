package adaptive

import (
	"bytes"
	"strings"
	"testing"
)

func testKey() []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestNewWithType(t *testing.T) {
	for _, typ := range []CipherType{CipherAESGCM, CipherChaCha20} {
		t.Run(string(typ), func(t *testing.T) {
			c, err := NewWithType(testKey(), typ)
			if err != nil {
				t.Fatalf("NewWithType() error = %v", err)
			}
			if c.Type() != typ {
				t.Errorf("Type() = %s, want %s", c.Type(), typ)
			}

			ct, err := c.Encrypt([]byte("sessions"), []byte("aad"))
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			pt, err := c.Decrypt(ct, []byte("aad"))
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if string(pt) != "sessions" {
				t.Errorf("Decrypt() = %q, want %q", pt, "sessions")
			}

			if _, err := c.Decrypt(ct, []byte("other")); err == nil {
				t.Error("Decrypt() with wrong aad should fail")
			}
			if _, err := c.Decrypt(ct[:4], nil); err == nil {
				t.Error("Decrypt() of short input should fail")
			}
		})
	}
}

func TestNewWithType_Errors(t *testing.T) {
	if _, err := NewWithType(make([]byte, 16), CipherAESGCM); err == nil {
		t.Error("16 byte key should be rejected")
	}
	if _, err := NewWithType(testKey(), "rot13"); err == nil {
		t.Error("unknown cipher type should be rejected")
	}
}

func TestSealOpen(t *testing.T) {
	key := testKey()
	plain := []byte(`[{"id":"abc"}]`)

	sealed, err := Seal(key, plain, nil)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if !IsSealed(sealed) {
		t.Fatal("IsSealed() = false for sealed data")
	}
	if bytes.Contains(sealed, []byte("abc")) {
		t.Error("sealed data contains plaintext")
	}

	got, err := Open(key, sealed, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("Open() = %q, want %q", got, plain)
	}

	other := testKey()
	other[0] ^= 0xff
	if _, err := Open(other, sealed, nil); err == nil {
		t.Error("Open() with wrong key should fail")
	}
}

func TestOpen_CrossCipher(t *testing.T) {
	key := testKey()
	c, _ := NewWithType(key, CipherChaCha20)
	body, _ := c.Encrypt([]byte("x"), nil)
	sealed := append(append(append([]byte{}, magic...), tagChaCha20), body...)

	got, err := Open(key, sealed, nil)
	if err != nil || string(got) != "x" {
		t.Errorf("Open() = %q, %v", got, err)
	}
}

func TestOpen_NotSealed(t *testing.T) {
	if _, err := Open(testKey(), []byte(`{"plain":true}`), nil); err != ErrNotSealed {
		t.Errorf("Open() error = %v, want ErrNotSealed", err)
	}
}

func TestKeyFromHex(t *testing.T) {
	good := strings.Repeat("ab", KeySize)
	key, err := KeyFromHex(good)
	if err != nil || len(key) != KeySize {
		t.Errorf("KeyFromHex() = %d bytes, %v", len(key), err)
	}
	if _, err := KeyFromHex("abcd"); err == nil {
		t.Error("short key should be rejected")
	}
	if _, err := KeyFromHex(strings.Repeat("zz", KeySize)); err == nil {
		t.Error("non-hex key should be rejected")
	}
}
