// Package encryption derives the at-rest encryption key for a kvgraph store.
//
// The key is derived from a user passphrase with PBKDF2-HMAC-SHA256 and a random
// per-database salt. The salt is stored next to the data (it is not secret) so the
// same passphrase opens the store after a restart.
//
// Example:
//
//	salt, created, err := encryption.LoadOrCreateSalt("./data")
//	key := encryption.DeriveKey([]byte(password), salt, encryption.DefaultIterations)
//	store, err := storage.Open(storage.Options{DataDir: "./data", EncryptionKey: key})
package encryption

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the derived key length (AES-256).
	KeySize = 32
	// SaltSize is the length of a generated salt.
	SaltSize = 32
	// DefaultIterations is the PBKDF2 work factor.
	DefaultIterations = 600000
	// SaltFile is the name of the salt file inside the data directory.
	SaltFile = "db.salt"
)

// ErrInvalidSalt is returned when an existing salt file has the wrong length.
var ErrInvalidSalt = errors.New("encryption: invalid salt file")

// DeriveKey derives a KeySize-byte key from password and salt.
func DeriveKey(password, salt []byte, iterations int) []byte {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return pbkdf2.Key(password, salt, iterations, KeySize, sha256.New)
}

// LoadOrCreateSalt returns the salt stored in dir, generating and persisting a new
// one if none exists. created reports whether a new salt was written.
func LoadOrCreateSalt(dir string) (salt []byte, created bool, err error) {
	path := filepath.Join(dir, SaltFile)

	existing, err := os.ReadFile(path)
	if err == nil {
		if len(existing) != SaltSize {
			return nil, false, fmt.Errorf("%w: %s has %d bytes", ErrInvalidSalt, path, len(existing))
		}
		return existing, false, nil
	}
	if !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("failed to read encryption salt: %w", err)
	}

	salt = make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, false, fmt.Errorf("failed to generate encryption salt: %w", err)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, false, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(path, salt, 0600); err != nil {
		return nil, false, fmt.Errorf("failed to save encryption salt: %w", err)
	}
	return salt, true, nil
}
