package users

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

// MinPasswordLength is the minimum required password length.
const MinPasswordLength = 8

const (
	// hashIterations is deliberately slow to blunt offline guessing.
	hashIterations = 200_000
	saltBytes      = 16
	keyBytes       = 32
)

func newSalt() (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	return hex.EncodeToString(salt), nil
}

func hashPassword(password, saltHex string) string {
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		// Legacy rows may hold a raw salt; use the bytes as-is.
		salt = []byte(saltHex)
	}
	key := pbkdf2.Key([]byte(password), salt, hashIterations, keyBytes, sha256.New)
	return hex.EncodeToString(key)
}

func verifyPassword(password, saltHex, wantHex string) bool {
	got := hashPassword(password, saltHex)
	return subtle.ConstantTimeCompare([]byte(got), []byte(wantHex)) == 1
}

// HashToken creates the SHA-256 hex digest under which reset tokens are
// stored; the plaintext token only ever travels to the account's mailbox.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
