// Package auth hashes credentials, issues and validates bearer tokens and
// guards handlers that need an authenticated user.
package auth

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrAuth is matched by every token failure.
	ErrAuth             = errors.New("could not validate credentials")
	ErrInvalidSignature = fmt.Errorf("%w: invalid signature", ErrAuth)
	ErrMalformed        = fmt.Errorf("%w: malformed token", ErrAuth)
	ErrExpired          = fmt.Errorf("%w: token has expired", ErrAuth)
)

const DefaultAccessTokenTTL = 60 * time.Minute

// TokenConfig holds the signing secret, HMAC algorithm name and default lifetime.
type TokenConfig struct {
	Secret         string
	Algorithm      string
	AccessTokenTTL time.Duration
}

// Claims is the decoded claim set of a validated token.
type Claims map[string]any

// Subject returns the "sub" claim, or "" when absent.
func (c Claims) Subject() string {
	s, _ := c["sub"].(string)
	return s
}

// TokenService issues and validates HMAC-signed JWTs. Issuer and verifier
// share the secret, so no key distribution is involved.
type TokenService struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is empty")
	}
	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	return &TokenService{secret: []byte(cfg.Secret), method: method, ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the time source used for both issuing and validating.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	cp := *s
	cp.now = now
	return &cp
}

// TTL returns the default token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a copy of claims with "exp" set to now+ttl. A non-positive ttl
// uses the configured default.
func (s *TokenService) Issue(claims map[string]any, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	mc := make(jwt.MapClaims, len(claims)+1)
	maps.Copy(mc, claims)
	mc["exp"] = s.now().Add(ttl).Unix()
	signed, err := jwt.NewWithClaims(s.method, mc).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature and expiry of token and returns its claims.
func (s *TokenService) Validate(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, mc,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
		return Claims(mc), nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSignature
	default:
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
