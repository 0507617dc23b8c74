package auth

import (
	"fmt"
	"strings"
	"time"

	"aidanwoods.dev/go-paseto"
	json "github.com/goccy/go-json"

	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/id"
)

const (
	tokenIssuer   = "askhub-server"
	tokenAudience = "askhub-client"
)

// TokenService issues and verifies PASETO v4.local access tokens.
type TokenService struct {
	symmetricKey paseto.V4SymmetricKey
	ttl          time.Duration
	now          func() time.Time
}

// NewTokenService creates a token service from a 32-byte key.
func NewTokenService(key []byte, ttl time.Duration) (*TokenService, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d bytes, got %d", keyLength, len(key))
	}
	symmetric, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}
	return &TokenService{symmetricKey: symmetric, ttl: ttl, now: time.Now}, nil
}

// Issue creates an access token for userID and returns it with its expiry.
func (s *TokenService) Issue(userID string) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(userID)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(expires)

	tokenID, err := id.Generate("tok")
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	//nolint:errcheck // Token.Set only errors on unmarshalable values
	_ = token.Set("user_id", userID)

	return token.V4Encrypt(s.symmetricKey, nil), expires, nil
}

// Verify decrypts and checks an access token. Any failure is UNAUTHORIZED.
func (s *TokenService) Verify(tokenString string) (*AccessClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.symmetricKey, strings.TrimSpace(tokenString), nil)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token").WithCause(err)
	}

	var claims AccessClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, apperrors.Unauthorized("malformed token claims").WithCause(err)
	}
	if claims.UserID == "" {
		return nil, apperrors.Unauthorized("token has no subject")
	}
	return &claims, nil
}

// TTL returns the configured access token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}
