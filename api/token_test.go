// This code is in Public Domain. Take all the code you want, I'll just write more.
package api

import (
	"crypto/md5"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSaltedHash(t *testing.T) {
	// the stored form is md5(salt + password_md5), hex-encoded
	sum := md5.Sum([]byte("pepper" + "0123456789abcdef0123456789abcdef"))
	want := hex.EncodeToString(sum[:])
	assert.Equal(t, want, SaltedHash("pepper", "0123456789abcdef0123456789abcdef"))

	// a different salt means a different hash for the same password
	assert.NotEqual(t,
		SaltedHash("salt-a", "0123456789abcdef0123456789abcdef"),
		SaltedHash("salt-b", "0123456789abcdef0123456789abcdef"))
}

func TestGenerateTimedHash(t *testing.T) {
	h := GenerateTimedHash("salt", "value")
	assert.Len(t, h, 32)
	_, err := hex.DecodeString(h)
	assert.NoError(t, err)

	// different inputs at the same instant still differ
	assert.NotEqual(t, GenerateTimedHash("salt", "a"), GenerateTimedHash("salt", "b"))
}

func TestRandomSalt(t *testing.T) {
	a := RandomSalt()
	b := RandomSalt()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
