package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/TheMichaelB/songdeck/internal/models"
)

// InspectToken reads the subject and expiry of a JWT without verifying its
// signature; only the server can do that. Tokens that are not JWTs are
// returned with no expiry.
func InspectToken(token string) models.TokenInfo {
	info := models.TokenInfo{Token: token}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return info
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if info.Subject == "" {
		// Tokens minted as {id: <user id>} carry no sub claim.
		if id, ok := claims["id"].(string); ok {
			info.Subject = id
		}
	}
	return info
}
