package auth

import (
	"time"
)

// AccessClaims is the decrypted payload of an access token.
type AccessClaims struct {
	UserID string `json:"user_id"`

	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// Expired reports whether the claims are past their expiry at now.
func (c *AccessClaims) Expired(now time.Time) bool {
	return !c.Expiration.IsZero() && now.After(c.Expiration)
}
