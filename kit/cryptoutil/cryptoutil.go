// Package cryptoutil provides small symmetric-signing helpers used to
// authenticate messages delivered outside this module's own process —
// the one case in this codebase where a payload crosses a boundary
// that isn't already trusted by construction (an in-memory VFS call,
// an in-process emitter). It is the consumer's responsibility to
// ensure inputs are reasonably sized so as to avoid memory exhaustion
// attacks.
package cryptoutil

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/nacl/auth"
)

const KeySize = 32

// Key32 is a pointer to a fixed-size 32-byte key.
type Key32 = *[KeySize]byte

var (
	ErrSecretKeyIsNil = errors.New("secret key is nil")
	ErrInvalidSig     = errors.New("invalid signature")
)

// RandomBytes returns a slice of cryptographically random bytes of
// length byteLen.
func RandomBytes(byteLen int) ([]byte, error) {
	r := make([]byte, byteLen)
	if _, err := rand.Read(r); err != nil {
		return nil, err
	}
	return r, nil
}

// SignSymmetric signs a message using a symmetric key, returning the
// HMAC-SHA-512-256 tag prepended to the original message. It is a
// convenience wrapper around nacl/auth.
func SignSymmetric(msg []byte, secretKey Key32) ([]byte, error) {
	if secretKey == nil {
		return nil, ErrSecretKeyIsNil
	}
	digest := auth.Sum(msg, secretKey)
	signedMsg := make([]byte, auth.Size+len(msg))
	copy(signedMsg, digest[:])
	copy(signedMsg[auth.Size:], msg)
	return signedMsg, nil
}

// VerifyAndReadSymmetric verifies a signed message using a symmetric
// key and returns the original message.
func VerifyAndReadSymmetric(signedMsg []byte, secretKey Key32) ([]byte, error) {
	if secretKey == nil {
		return nil, ErrSecretKeyIsNil
	}
	if len(signedMsg) < auth.Size {
		return nil, ErrInvalidSig
	}
	digest := make([]byte, auth.Size)
	copy(digest, signedMsg[:auth.Size])
	msg := signedMsg[auth.Size:]
	if !auth.Verify(digest, msg, secretKey) {
		return nil, ErrInvalidSig
	}
	return msg, nil
}

// ToKey32 converts a 32-byte slice into a Key32.
func ToKey32(b []byte) (Key32, error) {
	if len(b) != KeySize {
		return nil, errors.New("byte slice must be exactly 32 bytes")
	}
	var key [KeySize]byte
	copy(key[:], b)
	return &key, nil
}
