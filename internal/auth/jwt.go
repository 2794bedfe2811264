// Package auth provides bearer-token issuance/validation, password hashing,
// the request authentication middleware and the optional GitHub sign-in
// provider.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Client POSTs /auth/signup or /auth/login with email + password
//  2. Server verifies the bcrypt hash and issues a signed JWT
//  3. Client sends "Authorization: Bearer <jwt>" on every protected call
//  4. RequireAuth validates the JWT, loads the user named by its subject,
//     and stores that user in the request context
//
// WHY JWT?
// JWT is stateless: the signature proves the server issued the token, so
// verifying it needs only the secret. We still load the user row on every
// request, because a token must name a user that still exists.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims → {"sub":"42","exp":1234567890,"jti":"..."}
//	- Signature: HMAC-SHAxxx(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const (
	issuer     = "real-estate-ai"
	defaultTTL = 30 * time.Minute
)

// ErrInvalidToken covers every way a token can be unusable: malformed,
// tampered, wrong algorithm, wrong issuer, expired, or missing a subject.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens, the signing
// method (HS256/HS384/HS512) and the access-token lifetime.
type TokenService struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
}

// NewTokenService creates a TokenService.
//
// algorithm must name an HMAC method ("HS256", "HS384", "HS512"); ttl <= 0
// falls back to 30 minutes.
func NewTokenService(secret, algorithm string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}

	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", algorithm)
	}

	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &TokenService{secret: []byte(secret), method: method, ttl: ttl}, nil
}

// claims is the JWT payload. "sub" carries the user ID; "jti" is a unique
// token ID so two tokens issued in the same second still differ.
type claims struct {
	jwt.RegisteredClaims
}

// Generate creates and signs an access token for subject with the
// configured lifetime.
func (s *TokenService) Generate(subject string) (string, error) {
	return s.GenerateWithDuration(subject, s.ttl)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests (negative d yields an already-expired token).
func (s *TokenService) GenerateWithDuration(subject string, d time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("auth: token subject must not be empty")
	}

	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(s.method, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// TTL returns the access-token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Validate parses and verifies a JWT string and returns its subject.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired, and carries an expiry at all
//   - Issuer matches ours
//   - Algorithm is exactly the configured one (blocks "none" and
//     algorithm-confusion tokens)
//
// Every failure wraps ErrInvalidToken.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: bad claims", ErrInvalidToken)
	}

	if c.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}

	return c.Subject, nil
}
