// Package auth issues and verifies caller tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/config"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the JWT payload. The subject carries the user ID.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens signs and parses HS256 tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokens builds a token service from configuration.
func NewTokens(cfg config.JWTConfig) *Tokens {
	return &Tokens{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TokenTTL,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
}

// Issue returns a signed token for u and its expiry.
func (t *Tokens) Issue(u *model.User) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse validates a token and returns the caller it identifies.
func (t *Tokens) Parse(token string) (model.Caller, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	},
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Caller{}, ErrTokenExpired
		}
		return model.Caller{}, ErrInvalidToken
	}

	if claims.Subject == "" {
		return model.Caller{}, ErrInvalidToken
	}
	role, err := model.ParseRole(string(claims.Role))
	if err != nil {
		return model.Caller{}, ErrInvalidToken
	}
	return model.Caller{ID: claims.Subject, Role: role}, nil
}

// HashPassword hashes a plain text password.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// CheckPassword compares a hashed password with the plain text password.
func CheckPassword(hash, pw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
}
