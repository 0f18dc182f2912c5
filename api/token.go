// This code is in Public Domain. Take all the code you want, I'll just write more.
package api

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// GenerateTimedHash makes API keys, secrets and session tokens: a keyed
// hash over the server salt, the current time in milliseconds and the input
// value. Unique and unguessable per call in practice, but not a vetted
// token scheme.
func GenerateTimedHash(salt, val string) string {
	h := md5.New()
	h.Write([]byte(salt))
	h.Write([]byte(strconv.FormatInt(time.Now().UnixMilli(), 10)))
	h.Write([]byte(val))
	return hex.EncodeToString(h.Sum(nil))
}

// SaltedHash derives the stored password representation from a per-user
// salt and the client-side md5 of the password.
func SaltedHash(salt, passwordMD5 string) string {
	h := md5.New()
	h.Write([]byte(salt))
	h.Write([]byte(passwordMD5))
	return hex.EncodeToString(h.Sum(nil))
}

// RandomSalt returns 16 random bytes, hex-encoded.
func RandomSalt() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// out of entropy means something is badly wrong with the host
		panic(fmt.Sprintf("rand.Read failed: %s", err))
	}
	return hex.EncodeToString(b[:])
}
