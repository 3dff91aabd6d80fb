package token

import (
	"errors"
	"time"
)

var (
	ErrInvalidSignature = errors.New("token signature or format invalid")
	ErrExpired          = errors.New("token expired")
	ErrWeakSecret       = errors.New("signing secret must be at least 32 bytes")
	ErrSameSecret       = errors.New("access and refresh secrets must differ")
	ErrNegativeLeeway   = errors.New("leeway must not be negative")
)

// Status is the outcome of verifying a token. The zero value is
// StatusInvalidSignature so an unset result never reads as success.
type Status uint8

const (
	StatusInvalidSignature Status = iota
	StatusValid
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusExpired:
		return "expired"
	default:
		return "invalid_signature"
	}
}

type Claims struct {
	UserID    int64
	JTI       string // refresh tokens only
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Verification carries claims only when Status is StatusValid.
type Verification struct {
	Status Status
	Claims Claims
}

func (v Verification) Valid() bool { return v.Status == StatusValid }

func (v Verification) Err() error {
	switch v.Status {
	case StatusValid:
		return nil
	case StatusExpired:
		return ErrExpired
	default:
		return ErrInvalidSignature
	}
}

func invalid() Verification { return Verification{Status: StatusInvalidSignature} }
func expired() Verification { return Verification{Status: StatusExpired} }
