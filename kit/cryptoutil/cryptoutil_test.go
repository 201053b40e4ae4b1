package cryptoutil

import (
	"bytes"
	"testing"
)

func new32() *[32]byte {
	return &[32]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32}
}

func TestRandomBytes(t *testing.T) {
	a, err := RandomBytes(16)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(a) != 16 {
		t.Fatalf("expected 16 bytes, got %d", len(a))
	}
	b, err := RandomBytes(16)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("expected different random byte slices, got identical slices")
	}
}

func TestSignAndVerifySymmetric(t *testing.T) {
	key := new32()
	msg := []byte("hmr update payload")

	signed, err := SignSymmetric(msg, key)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	recovered, err := VerifyAndReadSymmetric(signed, key)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !bytes.Equal(recovered, msg) {
		t.Fatalf("expected %q, got %q", msg, recovered)
	}
}

func TestVerifySymmetricRejectsTamperedMessage(t *testing.T) {
	key := new32()
	signed, err := SignSymmetric([]byte("original"), key)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	signed[len(signed)-1] ^= 0xFF

	if _, err := VerifyAndReadSymmetric(signed, key); err == nil {
		t.Fatalf("expected tampered message to fail verification")
	}
}

func TestVerifySymmetricRejectsWrongKey(t *testing.T) {
	key := new32()
	other := &[32]byte{32, 31, 30, 29, 28, 27, 26, 25, 24, 23, 22, 21, 20, 19, 18, 17, 16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}

	signed, err := SignSymmetric([]byte("original"), key)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := VerifyAndReadSymmetric(signed, other); err == nil {
		t.Fatalf("expected wrong key to fail verification")
	}
}
