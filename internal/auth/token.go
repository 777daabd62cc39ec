package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	secretSize = 32
	saltSize   = 16
	keySize    = 32
	argonTime  = 1
	argonMem   = 64 * 1024
	argonPar   = 4
)

// NewSecret returns a random session secret and salt. The caller stores
// HashSecret(secret, salt) and hands FormatToken(id, secret) to the user.
func NewSecret() (secret string, salt []byte, err error) {
	raw := make([]byte, secretSize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", nil, fmt.Errorf("generate secret: %w", err)
	}
	salt = make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", nil, fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(raw), salt, nil
}

// HashSecret derives the stored hash for a session secret using Argon2id.
func HashSecret(secret string, salt []byte) string {
	key := argon2.IDKey([]byte(secret), salt, argonTime, argonMem, argonPar, keySize)
	return hex.EncodeToString(key)
}

// VerifySecret compares a presented secret against the stored hash in
// constant time.
func VerifySecret(secret string, salt []byte, hash string) bool {
	got := HashSecret(secret, salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(hash)) == 1
}

// FormatToken encodes a bearer token as "<session id>.<secret>".
func FormatToken(sessionID int64, secret string) string {
	return strconv.FormatInt(sessionID, 10) + "." + secret
}

// ParseToken splits a bearer token into session id and secret.
func ParseToken(token string) (int64, string, error) {
	id, secret, ok := strings.Cut(token, ".")
	if !ok {
		return 0, "", fmt.Errorf("malformed token")
	}
	sessionID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed token id")
	}
	return sessionID, secret, nil
}
