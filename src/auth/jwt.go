package auth

import (
	"errors"
	"time"

	"github.com/atelierhq/assetgate/src/oops"
	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid token")

// VerifyUserToken checks an HS256 bearer token issued by the metadata
// service's auth layer and returns the user id from its sub claim. The
// library call also rejects expired tokens.
func VerifyUserToken(tokenStr string, secret string) (string, error) {
	if tokenStr == "" {
		return "", ErrInvalidToken
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, oops.New(nil, "unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	if !claims.VerifyAudience("authenticated", true) {
		return "", ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrInvalidToken
	}

	return sub, nil
}

// ServiceToken mints a short-lived service-role token for admin RPCs against
// the metadata service.
func ServiceToken(secret string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":  "assetgate",
		"role": "service_role",
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", oops.New(err, "failed to sign service token")
	}
	return signed, nil
}
