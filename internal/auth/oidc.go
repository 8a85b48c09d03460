package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"

	"github.com/Tributary-ai-services/aether-insights/internal/config"
	"github.com/Tributary-ai-services/aether-insights/internal/logger"
)

// TokenClaims represents the JWT claims the API relies on
type TokenClaims struct {
	Sub               string      `json:"sub"`
	Iss               string      `json:"iss"`
	Aud               interface{} `json:"aud"`
	Exp               int64       `json:"exp"`
	Iat               int64       `json:"iat"`
	Email             string      `json:"email"`
	PreferredUsername string      `json:"preferred_username"`
	Name              string      `json:"name"`
	RealmAccess       RealmAccess `json:"realm_access"`
}

// RealmAccess represents realm access information
type RealmAccess struct {
	Roles []string `json:"roles"`
}

// HasRole reports whether the token carries a realm role
func (c *TokenClaims) HasRole(role string) bool {
	for _, r := range c.RealmAccess.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// OIDCVerifier verifies bearer tokens issued by an OIDC provider
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
	logger   *logger.Logger
	config   config.OIDCConfig
}

// NewOIDCVerifier discovers the provider and builds a verifier for its keys
func NewOIDCVerifier(ctx context.Context, cfg config.OIDCConfig, log *logger.Logger) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	v := &OIDCVerifier{
		verifier: provider.Verifier(verifierConfig(cfg)),
		logger:   log.WithService("oidc"),
		config:   cfg,
	}

	v.logger.Info("OIDC verifier initialized",
		zap.String("issuer", cfg.IssuerURL),
		zap.String("client_id", cfg.ClientID),
	)
	return v, nil
}

// NewOIDCVerifierWithKeySet builds a verifier that checks signatures against
// a fixed key set instead of the provider's discovery document
func NewOIDCVerifierWithKeySet(cfg config.OIDCConfig, keySet oidc.KeySet, log *logger.Logger) *OIDCVerifier {
	return &OIDCVerifier{
		verifier: oidc.NewVerifier(cfg.IssuerURL, keySet, verifierConfig(cfg)),
		logger:   log.WithService("oidc"),
		config:   cfg,
	}
}

// An empty client ID accepts tokens for any audience
func verifierConfig(cfg config.OIDCConfig) *oidc.Config {
	return &oidc.Config{
		ClientID:          cfg.ClientID,
		SkipClientIDCheck: cfg.ClientID == "",
	}
}

// Verify checks the token signature, issuer, audience and expiry and returns
// its claims
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*TokenClaims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		v.logger.Debug("Failed to verify token", zap.Error(err))
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}

	var claims TokenClaims
	if err := idToken.Claims(&claims); err != nil {
		v.logger.Error("Failed to parse token claims", zap.Error(err))
		return nil, fmt.Errorf("failed to parse token claims: %w", err)
	}

	v.logger.Debug("Token verified",
		zap.String("subject", claims.Sub),
		zap.String("username", claims.PreferredUsername),
	)
	return &claims, nil
}
