// Package middleware holds the gin middleware shared by the API server.
package middleware

import (
	"crypto"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ParsePublicKey parses a PEM-encoded RSA or EC public key used to
// verify API tokens.
func ParsePublicKey(pemData []byte) (crypto.PublicKey, error) {
	if key, err := jwt.ParseRSAPublicKeyFromPEM(pemData); err == nil {
		return key, nil
	}
	if key, err := jwt.ParseECPublicKeyFromPEM(pemData); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("public key is neither RSA nor EC PEM")
}

// Auth verifies the Bearer token on every request using the given public
// key. When key is nil, auth is disabled and the middleware is a
// pass-through.
func Auth(key crypto.PublicKey) gin.HandlerFunc {
	if key == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			unauthorized(c, "missing bearer token")
			return
		}
		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			switch t.Method.(type) {
			case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
				return key, nil
			default:
				return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
			}
		})
		if err != nil || !token.Valid {
			unauthorized(c, "invalid token")
			return
		}
		if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
			c.Set("subject", sub)
		}
		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"code": "UNAUTHORIZED", "message": message},
	})
}
