package auth

import (
	"errors"
	"time"

	"hostelgrievance/backend/internal/apperror"
	"hostelgrievance/backend/internal/config"
	"hostelgrievance/backend/internal/models"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Claims identify the caller. Role is only the coarse role; admin sub-roles are
// resolved from the store on every request.
type Claims struct {
	UserID     string      `json:"user_id"`
	ExternalID string      `json:"external_id"`
	Role       models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 identity tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: config.TokenTTL, now: time.Now}
}

// WithClock replaces the clock used for issuing and checking expiry.
func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	cp := *t
	cp.now = now
	return &cp
}

// Issue signs a token for u that expires after the token TTL.
func (t *Tokens) Issue(u *models.User) (string, error) {
	now := t.now()
	claims := Claims{
		UserID:     u.ID,
		ExternalID: u.StudentID,
		Role:       u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    config.TokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse verifies raw and returns its claims. Any failure is an Auth error.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(config.TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.Auth("token expired")
		}
		return nil, apperror.Auth("invalid token")
	}
	if !token.Valid || claims.UserID == "" {
		return nil, apperror.Auth("invalid token")
	}
	return claims, nil
}
