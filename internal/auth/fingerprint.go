package auth

import (
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

const (
	fingerprintTime    = 1
	fingerprintMemory  = 16 * 1024
	fingerprintThreads = 2
	fingerprintKeyLen  = 32
	saltLen            = 16
)

// VoterFingerprint derives the one-way vote deduplication key from a
// voter identifier and the election's salt. Deterministic within an
// election so the uniqueness constraint holds; salting per election
// prevents correlating the same voter across elections.
func VoterFingerprint(voterID string, salt []byte) string {
	key := argon2.IDKey([]byte(voterID), salt, fingerprintTime, fingerprintMemory, fingerprintThreads, fingerprintKeyLen)
	return hex.EncodeToString(key)
}

// NewFingerprintSalt generates a per-election salt.
func NewFingerprintSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}
