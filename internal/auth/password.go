package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the shortest password a staff account may use.
	MinPasswordLength = 8
	// DefaultBcryptCost applies when AUTH_BCRYPT_COST is unset or out of range.
	DefaultBcryptCost = 12
)

// ErrWeakPassword reports a password the account policy refuses.
var ErrWeakPassword = errors.New("password does not meet policy")

// BcryptCost clamps a configured cost into the range bcrypt accepts.
func BcryptCost(cost int) int {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return DefaultBcryptCost
	}
	return cost
}

// ValidatePassword applies the staff password policy: at least
// MinPasswordLength characters, not only whitespace, and not the username.
func ValidatePassword(username, password string) error {
	switch {
	case len([]rune(password)) < MinPasswordLength:
		return fmt.Errorf("%w: at least %d characters", ErrWeakPassword, MinPasswordLength)
	case strings.TrimSpace(password) == "":
		return fmt.Errorf("%w: blank", ErrWeakPassword)
	case username != "" && strings.EqualFold(strings.TrimSpace(password), strings.TrimSpace(username)):
		return fmt.Errorf("%w: same as username", ErrWeakPassword)
	case len(password) > 72:
		// bcrypt ignores everything past 72 bytes
		return fmt.Errorf("%w: longer than 72 bytes", ErrWeakPassword)
	}
	return nil
}

// HashPassword hashes a plaintext password; cost is clamped with BcryptCost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost(cost))
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
