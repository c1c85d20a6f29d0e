// File: internal/infra/web/link_token.go
package web

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"telegram-proxy-subscription/internal/domain"
)

// SignLinkToken wraps a compact subscription token into a signed JWT for use
// in public config URLs.
func SignLinkToken(secret, subToken string) (string, error) {
	claims := jwt.MapClaims{"sub": subToken}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseLinkToken verifies the JWT and returns the wrapped subscription token.
func ParseLinkToken(secret, raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", domain.ErrInvalidArgument
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", domain.ErrInvalidArgument
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", domain.ErrInvalidArgument
	}
	return sub, nil
}

// ConfigURL builds the public config link for one subscription token.
func ConfigURL(domainName, secret, subToken string) (string, error) {
	signed, err := SignLinkToken(secret, subToken)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s/sub/%s", domainName, signed), nil
}
