package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ecomarket/marketplace-backend/pkg/config"
)

var signingMethod = jwt.SigningMethodHS256

var ErrMissingSubject = errors.New("token has no subject")

// ParseIdentityToken verifies an identity-provider token and returns the
// caller. Signature, issuer, expiry and (when configured) audience are checked.
func ParseIdentityToken(cfg config.AuthConfig, tokenString string) (Identity, error) {
	if cfg.JWTSecret == "" {
		return Identity{}, fmt.Errorf("jwt secret is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.ClockSkew),
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	claims := &IdentityClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return Identity{}, err
	}

	identity := claims.Identity()
	if identity.UserID == "" {
		return Identity{}, ErrMissingSubject
	}
	return identity, nil
}

// MintIdentityToken signs a token the way the identity provider does. Used by
// local tooling and tests.
func MintIdentityToken(cfg config.AuthConfig, now time.Time, ttl time.Duration, identity Identity) (string, error) {
	if cfg.JWTSecret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if strings.TrimSpace(identity.UserID) == "" {
		return "", ErrMissingSubject
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}

	claims := IdentityClaims{
		Email:     identity.Email,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Picture:   identity.ProfileImageURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}
