package util

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	AdminKeyLength = 40
	AdminKeyFormat = "adm_%s"
)

func generateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func generateRandomString(length int) (string, error) {
	byteLength := (length*3 + 3) / 4
	b, err := generateRandomBytes(byteLength)
	if err != nil {
		return "", err
	}

	str := base64.URLEncoding.EncodeToString(b)
	str = strings.ReplaceAll(str, "-", "")
	str = strings.ReplaceAll(str, "_", "")
	str = strings.TrimRight(str, "=")
	if len(str) > length {
		return str[:length], nil
	}

	return str, nil
}

// GenerateAdminKey returns a fresh shared secret and its bcrypt hash.
func GenerateAdminKey() (fullKey string, keyHash string, err error) {
	secret, err := generateRandomString(AdminKeyLength)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate secret: %w", err)
	}

	fullKey = fmt.Sprintf(AdminKeyFormat, secret)
	keyHash, err = HashAdminKey(fullKey)
	if err != nil {
		return "", "", err
	}

	return fullKey, keyHash, nil
}

func HashAdminKey(fullKey string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(fullKey), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash admin key: %w", err)
	}
	return string(hashBytes), nil
}

// AdminKeyVerifier checks a presented key against either a bcrypt hash or a
// plain secret. An empty verifier rejects everything.
type AdminKeyVerifier struct {
	plain []byte
	hash  []byte
}

func NewAdminKeyVerifier(plain, hash string) *AdminKeyVerifier {
	v := &AdminKeyVerifier{}
	if hash != "" {
		v.hash = []byte(hash)
	} else if plain != "" {
		v.plain = []byte(plain)
	}
	return v
}

func (v *AdminKeyVerifier) Configured() bool {
	return len(v.hash) > 0 || len(v.plain) > 0
}

func (v *AdminKeyVerifier) Verify(presented string) bool {
	if presented == "" {
		return false
	}
	switch {
	case len(v.hash) > 0:
		return bcrypt.CompareHashAndPassword(v.hash, []byte(presented)) == nil
	case len(v.plain) > 0:
		return subtle.ConstantTimeCompare([]byte(presented), v.plain) == 1
	default:
		return false
	}
}
