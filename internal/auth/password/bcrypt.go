package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const DefaultCost = 12

// MaxLen is the number of bytes bcrypt actually hashes.
const MaxLen = 72

var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

type Hasher struct {
	cost  int
	dummy []byte
}

func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	// hash of a throwaway value, compared against when the user does not exist
	dummy, err := bcrypt.GenerateFromPassword([]byte("timing-parity"), cost)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	return &Hasher{cost: cost, dummy: dummy}, nil
}

func (h *Hasher) Hash(plain string) (string, error) {
	if len(plain) > MaxLen {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Verify reports whether plain matches hash. A mismatch is (false, nil); an
// error means the stored hash itself is unusable. Input longer than MaxLen
// never matches, since bcrypt would compare only its prefix.
func (h *Hasher) Verify(plain, hash string) (bool, error) {
	if len(plain) > MaxLen {
		h.Burn(plain[:MaxLen])
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("compare password: %w", err)
	}
}

// Burn spends the same time as a real Verify so that unknown usernames are
// indistinguishable from wrong passwords.
func (h *Hasher) Burn(plain string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
}
