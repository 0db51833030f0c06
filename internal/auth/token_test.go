package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func newTokens(t *testing.T, cfg TokenConfig) *TokenService {
	t.Helper()
	s, err := NewTokenService(cfg)
	require.NoError(t, err)
	return s.WithClock(func() time.Time { return t0 })
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	s := newTokens(t, TokenConfig{Secret: "test-secret"})

	tok, err := s.Issue(map[string]any{"sub": "alice", "scope": "me"}, time.Minute)
	require.NoError(t, err)

	claims, err := s.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject())
	assert.Equal(t, "me", claims["scope"])
	assert.Equal(t, float64(t0.Add(time.Minute).Unix()), claims["exp"])
}

func TestTokenService_IssueDoesNotMutateInput(t *testing.T) {
	s := newTokens(t, TokenConfig{Secret: "test-secret"})
	in := map[string]any{"sub": "alice"}

	_, err := s.Issue(in, time.Minute)
	require.NoError(t, err)
	assert.NotContains(t, in, "exp")
}

func TestTokenService_DefaultTTL(t *testing.T) {
	s := newTokens(t, TokenConfig{Secret: "test-secret", AccessTokenTTL: 30 * time.Minute})

	for _, ttl := range []time.Duration{0, -time.Second} {
		tok, err := s.Issue(map[string]any{"sub": "bob"}, ttl)
		require.NoError(t, err)
		claims, err := s.Validate(tok)
		require.NoError(t, err)
		assert.Equal(t, float64(t0.Add(30*time.Minute).Unix()), claims["exp"])
	}

	plain, err := NewTokenService(TokenConfig{Secret: "x"})
	require.NoError(t, err)
	assert.Equal(t, DefaultAccessTokenTTL, plain.TTL())
}

func TestTokenService_Expired(t *testing.T) {
	s := newTokens(t, TokenConfig{Secret: "test-secret"})
	tok, err := s.Issue(map[string]any{"sub": "alice"}, time.Minute)
	require.NoError(t, err)

	later := s.WithClock(func() time.Time { return t0.Add(2 * time.Minute) })
	_, err = later.Validate(tok)
	require.ErrorIs(t, err, ErrExpired)
	require.ErrorIs(t, err, ErrAuth)

	almost := s.WithClock(func() time.Time { return t0.Add(59 * time.Second) })
	_, err = almost.Validate(tok)
	require.NoError(t, err)
}

func TestTokenService_Rejects(t *testing.T) {
	s := newTokens(t, TokenConfig{Secret: "test-secret"})
	other := newTokens(t, TokenConfig{Secret: "other-secret"})
	hs512 := newTokens(t, TokenConfig{Secret: "test-secret", Algorithm: "HS512"})

	foreign, err := other.Issue(map[string]any{"sub": "alice"}, time.Minute)
	require.NoError(t, err)
	wrongAlg, err := hs512.Issue(map[string]any{"sub": "alice"}, time.Minute)
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "alice", "exp": t0.Add(time.Minute).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "other secret", token: foreign, want: ErrInvalidSignature},
		{name: "other algorithm", token: wrongAlg, want: ErrInvalidSignature},
		{name: "alg none", token: unsigned, want: ErrInvalidSignature},
		{name: "garbage", token: "not-a-token", want: ErrMalformed},
		{name: "empty", token: "", want: ErrMalformed},
		{name: "missing exp", token: noExp, want: ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Validate(tt.token)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, ErrAuth)
		})
	}
}

func TestNewTokenService_Config(t *testing.T) {
	_, err := NewTokenService(TokenConfig{})
	require.Error(t, err)

	_, err = NewTokenService(TokenConfig{Secret: "x", Algorithm: "RS256"})
	require.Error(t, err)

	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		s, err := NewTokenService(TokenConfig{Secret: "x", Algorithm: alg})
		require.NoError(t, err, alg)
		tok, err := s.Issue(map[string]any{"sub": "a"}, time.Minute)
		require.NoError(t, err)
		_, err = s.Validate(tok)
		require.NoError(t, err, alg)
	}
}

func TestClaims_Subject(t *testing.T) {
	assert.Equal(t, "", Claims{}.Subject())
	assert.Equal(t, "", Claims{"sub": 42}.Subject())
	assert.Equal(t, "x", Claims{"sub": "x"}.Subject())
}
