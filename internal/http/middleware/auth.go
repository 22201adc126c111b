package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/sanskar-502/Bajaj-Cloud/internal/http/response"
	"github.com/sanskar-502/Bajaj-Cloud/internal/platform/logger"
)

var (
	errMissingToken  = errors.New("missing or invalid token")
	errAuthDisabled  = errors.New("bearer authentication is not configured")
	errTokenRejected = errors.New("unauthorized")
)

// AuthMiddleware accepts a bearer token that equals the static API token or,
// when a secret is configured, any valid HS256 JWT signed with it.
type AuthMiddleware struct {
	log       *logger.Logger
	token     []byte
	jwtSecret []byte
}

func NewAuthMiddleware(log *logger.Logger, staticToken string, jwtSecret string) *AuthMiddleware {
	am := &AuthMiddleware{log: log.With("Middleware", "AuthMiddleware")}
	if t := strings.TrimSpace(staticToken); t != "" {
		am.token = []byte(t)
	}
	if s := strings.TrimSpace(jwtSecret); s != "" {
		am.jwtSecret = []byte(s)
	}
	return am
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(am.token) == 0 && len(am.jwtSecret) == 0 {
			am.log.Warn("Rejecting request: no API_AUTH_TOKEN or API_JWT_SECRET configured", "path", c.FullPath())
			abortUnauthorized(c, errAuthDisabled)
			return
		}
		tokenString := bearerToken(c)
		if tokenString == "" {
			abortUnauthorized(c, errMissingToken)
			return
		}
		if !am.valid(tokenString) {
			abortUnauthorized(c, errTokenRejected)
			return
		}
		c.Next()
	}
}

func (am *AuthMiddleware) valid(tokenString string) bool {
	if len(am.token) > 0 && subtle.ConstantTimeCompare([]byte(tokenString), am.token) == 1 {
		return true
	}
	if len(am.jwtSecret) == 0 {
		return false
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	tok, err := parser.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return am.jwtSecret, nil
	})
	if err != nil {
		am.log.Debug("JWT rejected", "error", err)
		return false
	}
	return tok.Valid
}

func abortUnauthorized(c *gin.Context, err error) {
	response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
	c.Abort()
}

func bearerToken(c *gin.Context) string {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
