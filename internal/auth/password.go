package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 10

// MaxPasswordBytes is the longest plaintext bcrypt reads in full.
const MaxPasswordBytes = 72

const (
	temporaryPasswordLength = 12

	upperChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerChars  = "abcdefghjkmnpqrstuvwxyz"
	digitChars  = "23456789"
	symbolChars = "!@#$%"

	// TemporaryPasswordAlphabet excludes 0, O, 1, l and I.
	TemporaryPasswordAlphabet = upperChars + lowerChars + digitChars + symbolChars
)

// CredentialManager hashes and verifies passwords and issues temporary ones.
type CredentialManager struct {
	cost int
}

// NewCredentialManager returns a manager using the given bcrypt cost.
// Costs outside bcrypt's accepted range fall back to DefaultBcryptCost.
func NewCredentialManager(cost int) *CredentialManager {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &CredentialManager{cost: cost}
}

// Hash returns a salted bcrypt digest of plaintext.
func (m *CredentialManager) Hash(plaintext string) (string, error) {
	if len(plaintext) == 0 {
		return "", errors.New("password is empty")
	}
	if len(plaintext) > MaxPasswordBytes {
		return "", fmt.Errorf("password exceeds %d bytes", MaxPasswordBytes)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), m.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify compares plaintext against digest. Malformed digests verify false,
// as does any plaintext longer than Hash accepts.
func (m *CredentialManager) Verify(plaintext, digest string) bool {
	if digest == "" || len(plaintext) > MaxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// TemporaryPassword returns a random password containing at least one upper,
// lower, digit and symbol character.
func (m *CredentialManager) TemporaryPassword() (string, error) {
	buf := make([]byte, 0, temporaryPasswordLength)
	for _, class := range []string{upperChars, lowerChars, digitChars, symbolChars} {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for len(buf) < temporaryPasswordLength {
		c, err := randomChar(TemporaryPasswordAlphabet)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	// Fisher-Yates so the guaranteed classes do not sit at fixed positions.
	for i := len(buf) - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return "", err
		}
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}

func randomChar(alphabet string) (byte, error) {
	i, err := randomIndex(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[i], nil
}

func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("read random: %w", err)
	}
	return int(v.Int64()), nil
}
