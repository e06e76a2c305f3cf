package marketapi

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// issueChatToken signs a token granting chat access for one paid session.
func issueChatToken(cfg Config, sessionID string, listingID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    cfg.SessionIssuer,
		Subject:   sessionID,
		Audience:  jwt.ClaimStrings{listingID},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.SessionSigningKey))
	if err != nil {
		return "", fmt.Errorf("sign chat token: %w", err)
	}
	return signed, nil
}

// parseChatToken validates a token and returns the session id it grants.
func parseChatToken(cfg Config, raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(token *jwt.Token) (any, error) {
			return []byte(cfg.SessionSigningKey), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.SessionIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("parse chat token: %w", err)
	}
	return claims.Subject, nil
}
