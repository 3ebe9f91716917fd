package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/mkraev/chatauth/internal/apperrors"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	// Returns apperrors.ErrInvalidHashFormat if hashedPassword is not a
	// hash at all, plain error on mismatch
	Compare(hashedPassword string, password string) error

	// Burn the same CPU cost as Compare without a real hash
	// Used to keep the unknown-email login path as slow as the
	// wrong-password one
	DummyCompare(password string)
}

// Bcrypt password hasher
// Passwords are pre-hashed with sha256 so inputs longer than bcrypt's
// 72 byte limit still use their full entropy
type BcryptHasher struct {
	// bcrypt cost factor, bcrypt.DefaultCost when zero
	Cost int
}

func (h BcryptHasher) cost() int {
	if h.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return h.Cost
}

func (h BcryptHasher) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	hash, err := bcrypt.GenerateFromPassword(sum[:], h.cost())
	return string(hash), err
}

func (h BcryptHasher) Compare(hashedPassword string, password string) error {
	sum := sha256.Sum256([]byte(password))
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), sum[:])

	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return err
	default:
		// Everything else bcrypt reports is a broken stored hash, not
		// a failed verification
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidHashFormat, err)
	}
}

// Hashes of an unguessable value, one per cost factor, compared against
// when no user record exists
var dummyHashes sync.Map

// dummyHash returns a fake stored hash at the same cost Compare pays for
// real hashes, so the unknown-email path is as slow as the wrong-password one
func (h BcryptHasher) dummyHash() string {
	cost := h.cost()
	if cached, ok := dummyHashes.Load(cost); ok {
		return cached.(string)
	}

	hash, err := BcryptHasher{Cost: cost}.Hash("chatauth-dummy-compare-subject")
	if err != nil {
		panic(err)
	}

	cached, _ := dummyHashes.LoadOrStore(cost, hash)
	return cached.(string)
}

func (h BcryptHasher) DummyCompare(password string) {
	sum := sha256.Sum256([]byte(password))
	_ = bcrypt.CompareHashAndPassword([]byte(h.dummyHash()), sum[:])
}
