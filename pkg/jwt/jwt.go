// Package jwt signs and verifies the bearer tokens issued by the simulated
// API.
package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is the issuer claim of every token this service signs
const Issuer = "busticket-simulated-api"

var (
	// ErrExpired reports a well formed token past its expiry
	ErrExpired = errors.New("token has expired")

	// ErrInvalid reports a token that is malformed, forged or foreign
	ErrInvalid = errors.New("invalid token")
)

// Subject is the user a token is issued to
type Subject struct {
	UserID int64
	Email  string
	Role   string
}

// Claims represents the JWT claims structure
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Service handles JWT operations
type Service struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewService creates a new JWT service. now defaults to time.Now.
func NewService(secret string, expiry time.Duration, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		secret: []byte(secret),
		expiry: expiry,
		now:    now,
	}
}

// Issue signs a token for sub and returns it with its expiry time
func (s *Service) Issue(sub Subject) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.expiry)

	claims := Claims{
		UserID: sub.UserID,
		Email:  sub.Email,
		Role:   sub.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(sub.UserID, 10),
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature, issuer and lifetime of raw. The error wraps
// ErrExpired or ErrInvalid.
func (s *Service) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, s.key,
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: expired at %v", ErrExpired, claims.ExpiresAt)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	case claims.UserID <= 0:
		return nil, fmt.Errorf("%w: no user", ErrInvalid)
	}
	return claims, nil
}

func (s *Service) key(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return s.secret, nil
}
