package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// The demo token only carries the picked user id; it protects nothing.
type claims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

func issueToken(secret []byte, userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		ID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func parseToken(secret []byte, tokenStr string) (string, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid || c.ID == "" {
		return "", fmt.Errorf("parse token: missing user id")
	}
	return c.ID, nil
}
