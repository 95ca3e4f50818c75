package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims are the claims the identity provider puts in its bearer
// tokens. The subject is the marketplace user id.
type IdentityClaims struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Picture   string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the verified caller extracted from a token.
type Identity struct {
	UserID          string
	Email           string
	FirstName       string
	LastName        string
	ProfileImageURL string
}

func (c *IdentityClaims) Identity() Identity {
	return Identity{
		UserID:          strings.TrimSpace(c.Subject),
		Email:           strings.TrimSpace(c.Email),
		FirstName:       strings.TrimSpace(c.FirstName),
		LastName:        strings.TrimSpace(c.LastName),
		ProfileImageURL: strings.TrimSpace(c.Picture),
	}
}
