// Package cryptox derives and checks password verifiers. The console uses it
// to accept the built-in demo credential while the backend is unreachable.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// DeriveKey stretches password with argon2id into a 32-byte key.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// MakeVerifier hashes a derived key so the key itself need not be stored.
func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}

// Verify reports whether password, stretched with salt, matches verifier.
// The comparison runs in constant time.
func Verify(password, salt, verifier []byte) bool {
	candidate := MakeVerifier(DeriveKey(password, salt))
	return subtle.ConstantTimeCompare(candidate, verifier) == 1
}
