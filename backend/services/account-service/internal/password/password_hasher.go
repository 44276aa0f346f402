package password

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrEmptyPassword is returned when hashing an empty password.
	ErrEmptyPassword = errors.New("password: empty password")
	// ErrMismatch is returned when a password does not match the stored value.
	ErrMismatch = errors.New("password: mismatch")
)

// Hasher defines password hashing contract.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(stored, password string) error
}

// New returns the hasher for scheme ("plain" or "bcrypt").
func New(scheme string) (Hasher, error) {
	switch scheme {
	case "plain", "":
		return PlainHasher{}, nil
	case "bcrypt":
		return NewBcryptHasher(0), nil
	default:
		return nil, fmt.Errorf("password: unknown scheme %q", scheme)
	}
}

// PlainHasher stores credentials as given and compares them as opaque
// strings.
type PlainHasher struct{}

// Hash returns password unchanged.
func (PlainHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	return password, nil
}

// Compare reports ErrMismatch unless both strings are equal.
func (PlainHasher) Compare(stored, password string) error {
	if subtle.ConstantTimeCompare([]byte(stored), []byte(password)) != 1 {
		return ErrMismatch
	}
	return nil
}

// BcryptHasher implements Hasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a bcrypt-backed password hasher.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash converts plain password into hash.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare checks if provided password matches stored hash.
func (h *BcryptHasher) Compare(stored, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}
