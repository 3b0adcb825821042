package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidatePassword(t *testing.T) {
	testCases := []struct {
		name     string
		username string
		password string
		ok       bool
	}{
		{name: "long enough", username: "guard1", password: "door-pass-1", ok: true},
		{name: "too short", username: "guard1", password: "short", ok: false},
		{name: "blank", username: "guard1", password: "          ", ok: false},
		{name: "same as username", username: "cashier01", password: "Cashier01", ok: false},
		{name: "past bcrypt limit", username: "guard1", password: strings.Repeat("x", 73), ok: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.username, tc.password)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrWeakPassword)
		})
	}
}

func TestBcryptCostBounds(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, BcryptCost(0))
	assert.Equal(t, DefaultBcryptCost, BcryptCost(bcrypt.MaxCost+1))
	assert.Equal(t, bcrypt.MinCost, BcryptCost(bcrypt.MinCost))
}

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("door-pass-1", bcrypt.MinCost)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	assert.NoError(t, ComparePassword(hash, "door-pass-1"))
	assert.Error(t, ComparePassword(hash, "door-pass-2"))
}
