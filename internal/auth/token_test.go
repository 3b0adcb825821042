package auth

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ebingo-service/internal/domain"
)

func int64Ptr(v int64) *int64 { return &v }

func TestGenerateAndParseToken(t *testing.T) {
	tm := NewTokenManager("secret", 0)
	assert.Equal(t, 24*time.Hour, tm.TTL())

	token, issued, err := tm.GenerateToken(&domain.User{ID: 7, Role: domain.RoleCashier, BranchID: int64Ptr(3)})
	require.NoError(t, err)
	require.NotEmpty(t, issued.ID)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, domain.RoleCashier, claims.Role)
	require.NotNil(t, claims.BranchID)
	assert.Equal(t, int64(3), *claims.BranchID)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	token, _, err := NewTokenManager("other", 60).GenerateToken(&domain.User{ID: 1, Role: domain.RoleKaizen})
	require.NoError(t, err)

	_, err = NewTokenManager("secret", 60).ParseToken(token)
	assert.ErrorIs(t, err, ErrMalformedClaim)
}

func TestParseTokenExpired(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := tm.GenerateToken(&domain.User{ID: 1, Role: domain.RoleGuard, BranchID: int64Ptr(1)})
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.ParseToken(token)
	assert.ErrorIs(t, err, ErrExpiredClaim)
}

func TestDecodeClaims(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	now := time.Now()

	token, _, err := tm.GenerateToken(&domain.User{ID: 9, Role: domain.RoleGuard, BranchID: int64Ptr(4)})
	require.NoError(t, err)

	claims, err := DecodeClaims(token, now)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleGuard, claims.Role)
	assert.Equal(t, int64(4), *claims.BranchID)

	_, err = DecodeClaims(token, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrExpiredClaim)

	testCases := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-token"},
		{name: "truncated", token: strings.Join(strings.Split(token, ".")[:2], ".")},
		{name: "unknown role", token: unsignedToken(t, jwt.MapClaims{"role": "janitor", "branch_id": 1})},
		{name: "cashier without branch", token: unsignedToken(t, jwt.MapClaims{"role": "cashier"})},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeClaims(tc.token, now)
			assert.ErrorIs(t, err, ErrMalformedClaim)
		})
	}
}

func TestDecodeClaimsNormalizesRoleCase(t *testing.T) {
	token := unsignedToken(t, jwt.MapClaims{"role": "SuperAdmin", "id": 2})
	claims, err := DecodeClaims(token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSuperAdmin, claims.Role)
	assert.Nil(t, claims.BranchID)
}

func unsignedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("whatever"))
	require.NoError(t, err)
	return token
}
