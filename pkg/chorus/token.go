package chorus

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TokenExpiry extracts the expiry instant from a JWT's exp claim without
// verifying the signature. The SDK never validates server tokens, it only
// needs the lifetime for cache bookkeeping.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, NewAuthError(fmt.Sprintf("parse token: %v", err))
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}, NewAuthError("token has no exp claim")
	}
	return time.Unix(int64(exp), 0), nil
}

// TokenTTL returns the remaining lifetime of a JWT, floored at zero.
func TokenTTL(token string) (time.Duration, error) {
	at, err := TokenExpiry(token)
	if err != nil {
		return 0, err
	}
	ttl := time.Until(at)
	if ttl < 0 {
		ttl = 0
	}
	return ttl, nil
}

// MintDevToken signs a short-lived HS256 token with the API key as secret.
// Development and test use only; production tokens come from the token
// endpoint.
func MintDevToken(apiKey string, ttl time.Duration, claims map[string]interface{}) (string, error) {
	payload := jwt.MapClaims{
		"exp": time.Now().Add(ttl).Unix(),
	}
	for k, v := range claims {
		payload[k] = v
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	signed, err := token.SignedString([]byte(apiKey))
	if err != nil {
		return "", NewAuthError(fmt.Sprintf("sign dev token: %v", err))
	}
	return signed, nil
}
