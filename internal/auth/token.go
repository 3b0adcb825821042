package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/ebingo-service/internal/domain"
)

var (
	// ErrMalformedClaim covers undecodable tokens and claims with an unusable role/branch.
	ErrMalformedClaim = errors.New("malformed session claim")
	// ErrExpiredClaim reports a decodable claim past its expiry.
	ErrExpiredClaim = errors.New("session claim expired")
	// ErrSessionRejected reports that the server refused the session behind a request.
	ErrSessionRejected = errors.New("session rejected by server")
)

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 24 * 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute, now: time.Now}
}

// TTL reports the lifetime of issued tokens.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Claims describes JWT payload.
type Claims struct {
	UserID   int64       `json:"id"`
	Role     domain.Role `json:"role"`
	BranchID *int64      `json:"branch_id"`
	jwt.RegisteredClaims
}

// GenerateToken builds and signs a JWT for the user.
func (tm *TokenManager) GenerateToken(user *domain.User) (string, *Claims, error) {
	issuedAt := tm.now()
	claims := &Claims{
		UserID:   user.ID,
		Role:     user.Role,
		BranchID: user.BranchID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(user.ID, 10),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(tm.ttl)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", nil, err
	}
	return tokenString, claims, nil
}

// ParseToken validates signature and expiry and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredClaim
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedClaim, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformedClaim
	}
	if err := claims.normalize(); err != nil {
		return nil, err
	}
	return claims, nil
}

// DecodeClaims reads claims without the signing secret, the way a terminal
// inspects its own token. Signature trust stays with the server.
func DecodeClaims(tokenStr string, now time.Time) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrMalformedClaim
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedClaim, err)
	}
	if err := claims.normalize(); err != nil {
		return nil, err
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return nil, ErrExpiredClaim
	}
	return claims, nil
}

func (c *Claims) normalize() error {
	role, ok := domain.ParseRole(string(c.Role))
	if !ok {
		return fmt.Errorf("%w: unknown role %q", ErrMalformedClaim, c.Role)
	}
	c.Role = role
	if role.BranchScoped() && c.BranchID == nil {
		return fmt.Errorf("%w: %s without branch", ErrMalformedClaim, role)
	}
	return nil
}
