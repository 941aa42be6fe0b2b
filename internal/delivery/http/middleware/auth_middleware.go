package middleware

import (
	"net/http"
	"strings"

	"career-coach-backend/internal/delivery/http/response"
	"career-coach-backend/internal/domain"
	"career-coach-backend/pkg/audit"
	"career-coach-backend/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// sessionCookie is where Clerk's frontend SDK keeps the session token
const sessionCookie = "__session"

// sessionClaims are the claims of a Clerk session token that this service reads
type sessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid,omitempty"`
}

// AuthMiddleware verifies the Clerk session token (RS256, keys from JWKS) and
// attaches the subject as the caller id. issuer is checked when non-empty.
func AuthMiddleware(jwksProvider *auth.Provider, issuer string) gin.HandlerFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256"})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(c *gin.Context) {
		var tokenString string

		// 1. Try to get token from Header
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			tokenString = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		} else if cookie, err := c.Cookie(sessionCookie); err == nil {
			// 2. Fall back to the session cookie
			tokenString = cookie
		}

		if tokenString == "" {
			response.Error(c, http.StatusUnauthorized, "Authorization header or session cookie required", nil)
			c.Abort()
			return
		}

		claims := &sessionClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, jwksProvider.KeyFunc)
		if err != nil || !token.Valid || claims.Subject == "" {
			reason := "missing subject"
			if err != nil {
				reason = err.Error()
			}
			audit.Default().Log(audit.Event{
				Type:      audit.EventTokenRejected,
				IP:        c.ClientIP(),
				RequestID: c.GetString(RequestIDKey),
				Details:   map[string]string{"reason": reason, "path": c.FullPath()},
			})
			response.Error(c, http.StatusUnauthorized, "Invalid session token", nil)
			c.Abort()
			return
		}

		c.Set(string(domain.KeyUserID), claims.Subject)
		if claims.SessionID != "" {
			c.Set(string(domain.KeySessionID), claims.SessionID)
		}
		c.Request = c.Request.WithContext(auth.WithCaller(c.Request.Context(), claims.Subject))

		c.Next()
	}
}
