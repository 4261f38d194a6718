package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	password := []byte("demo123")
	salt := []byte("fixed-salt")

	key1 := DeriveKey(password, salt)
	key2 := DeriveKey(password, salt)

	require.Len(t, key1, 32)
	assert.True(t, bytes.Equal(key1, key2))
}

func TestDeriveKey_DifferentSalts(t *testing.T) {
	password := []byte("demo123")

	assert.NotEqual(t, DeriveKey(password, []byte("salt-1")), DeriveKey(password, []byte("salt-2")))
}

func TestMakeVerifier_HidesKey(t *testing.T) {
	key := DeriveKey([]byte("demo123"), []byte("salt"))
	v := MakeVerifier(key)

	require.Len(t, v, 32)
	assert.NotEqual(t, key, v)
	assert.Equal(t, v, MakeVerifier(key))
}

func TestVerify(t *testing.T) {
	salt := []byte("matchdesk-demo")
	verifier := MakeVerifier(DeriveKey([]byte("demo123"), salt))

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"correct password", "demo123", true},
		{"wrong password", "demo124", false},
		{"empty password", "", false},
		{"case matters", "DEMO123", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Verify([]byte(tt.password), salt, verifier))
		})
	}
}

func TestVerify_WrongVerifierLength(t *testing.T) {
	assert.False(t, Verify([]byte("demo123"), []byte("s"), []byte{1, 2, 3}))
}
