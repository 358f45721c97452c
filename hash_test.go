package scrub

import (
	"errors"
	"strings"
	"testing"
)

func TestSHA256Hasher(t *testing.T) {
	h := SHA256Hasher()

	got := h.Hash([]byte("hello"))
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Errorf("Hash(hello) = %q, want %q", got, want)
	}
}

func TestSHA512Hasher(t *testing.T) {
	h := SHA512Hasher()

	got := h.Hash([]byte("hello"))
	if len(got) != 128 {
		t.Errorf("len(Hash()) = %d, want 128", len(got))
	}
	if got != h.Hash([]byte("hello")) {
		t.Error("SHA-512 should be deterministic")
	}
}

func TestBLAKE2b(t *testing.T) {
	h, err := BLAKE2b([]byte("tenant-key"))
	if err != nil {
		t.Fatalf("BLAKE2b() error: %v", err)
	}

	a := h.Hash([]byte("alice@example.com"))
	if len(a) != 64 {
		t.Errorf("len(Hash()) = %d, want 64", len(a))
	}
	if a != h.Hash([]byte("alice@example.com")) {
		t.Error("keyed BLAKE2b should be deterministic")
	}
	if a == h.Hash([]byte("bob@example.com")) {
		t.Error("different inputs should not collide")
	}

	other, _ := BLAKE2b([]byte("other-key"))
	if a == other.Hash([]byte("alice@example.com")) {
		t.Error("different keys should yield different pseudonyms")
	}
}

func TestBLAKE2b_KeyCopied(t *testing.T) {
	key := []byte("mutable-key")
	h, err := BLAKE2b(key)
	if err != nil {
		t.Fatalf("BLAKE2b() error: %v", err)
	}
	before := h.Hash([]byte("x"))
	key[0] = 'X'
	if h.Hash([]byte("x")) != before {
		t.Error("hasher should not observe changes to the caller's key")
	}
}

func TestBLAKE2b_KeyTooLong(t *testing.T) {
	_, err := BLAKE2b([]byte(strings.Repeat("k", 65)))
	if err == nil {
		t.Fatal("expected error for 65-byte key")
	}
	if !errors.Is(err, ErrInvalidKey) {
		t.Errorf("error = %v, want ErrInvalidKey", err)
	}
}

func TestBLAKE2b_UnusableKeyFailsClosed(t *testing.T) {
	h := &blake2bHasher{key: make([]byte, 65)}
	if got := h.Hash([]byte("secret")); got != DefaultMarker {
		t.Errorf("Hash() = %q, want %q", got, DefaultMarker)
	}
}

func TestBLAKE2b_EmptyKey(t *testing.T) {
	h, err := BLAKE2b(nil)
	if err != nil {
		t.Fatalf("BLAKE2b(nil) error: %v", err)
	}
	if len(h.Hash([]byte("x"))) != 64 {
		t.Error("unkeyed BLAKE2b should still produce a 256-bit digest")
	}
}
