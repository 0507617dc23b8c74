package providers

import (
	"github.com/samber/do/v2"

	"github.com/askhub/askhub-server/internal/auth"
	"github.com/askhub/askhub-server/internal/config"
	"github.com/askhub/askhub-server/internal/logger"
)

// AuthKey wraps the authentication key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the token signing key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Auth.KeyPath)
	if err != nil {
		return nil, err
	}

	log.Info("Authentication key loaded",
		"path", cfg.Auth.KeyPath,
		"access_token_ttl", cfg.Auth.AccessTokenTTL,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService([]byte(authKey), cfg.Auth.AccessTokenTTL)
}
