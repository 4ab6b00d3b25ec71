package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	v1 "github.com/kubev2v/engine-scheduler/api/v1"
)

const (
	bearerPrefix = "Bearer "
	subjectKey   = "subject"
)

// Authenticator rejects requests without a valid HS256 bearer token signed
// with secret. The token subject is stored in the context under "subject".
func Authenticator(secret []byte) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	keyFunc := func(*jwt.Token) (any, error) {
		return secret, nil
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, v1.ErrorResponse{Error: "missing bearer token"})
			return
		}

		claims := &jwt.RegisteredClaims{}
		if _, err := parser.ParseWithClaims(strings.TrimPrefix(header, bearerPrefix), claims, keyFunc); err != nil {
			zap.S().Named("auth").Debugw("rejected token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, v1.ErrorResponse{Error: "invalid token"})
			return
		}

		c.Set(subjectKey, claims.Subject)
		c.Next()
	}
}
