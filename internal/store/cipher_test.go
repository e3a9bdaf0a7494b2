package store

import (
	"encoding/base64"
	"testing"
)

func testCipher(t *testing.T) *Cipher {
	t.Helper()
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	c, err := NewCipher(key)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	return c
}

func TestCipherRoundTrip(t *testing.T) {
	t.Parallel()
	c := testCipher(t)

	sealed, err := c.Encrypt("hunter2-but-longer")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := c.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != "hunter2-but-longer" {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestCipherRejectsTampering(t *testing.T) {
	t.Parallel()
	c := testCipher(t)

	sealed, err := c.Encrypt("secret")
	if err != nil {
		t.Fatal(err)
	}
	sealed[len(sealed)-1] ^= 0xff
	if _, err := c.Decrypt(sealed); err == nil {
		t.Fatal("expected authentication failure")
	}
}

func TestNewCipherKeyValidation(t *testing.T) {
	t.Parallel()
	if _, err := NewCipher("not base64"); err == nil {
		t.Fatal("expected error for invalid encoding")
	}
	short := base64.StdEncoding.EncodeToString(make([]byte, 8))
	if _, err := NewCipher(short); err == nil {
		t.Fatal("expected error for short key")
	}
}
