package auth

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUsernameTaken       = errors.New("username already taken")

	// ErrReuseDetected renders exactly like ErrInvalidRefreshToken to the
	// client; only logs and metrics tell them apart.
	ErrReuseDetected = fmt.Errorf("refresh token reuse detected: %w", ErrInvalidRefreshToken)
)
