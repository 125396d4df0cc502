package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// sessionCookieName is where Clerk's frontend SDK keeps the session token.
const sessionCookieName = "__session"

const (
	contextKeyAccountID = "account_id"
	contextKeySessionID = "session_id"
)

// AccountIDFromContext returns the account set by RequireSession, "" if not set.
func AccountIDFromContext(c *gin.Context) string {
	return c.GetString(contextKeyAccountID)
}

// SessionIDFromContext returns the Clerk session id, "" if the token had none.
func SessionIDFromContext(c *gin.Context) string {
	return c.GetString(contextKeySessionID)
}

// SetPrincipal stores the caller's ids in context.
func SetPrincipal(c *gin.Context, accountID, sessionID string) {
	c.Set(contextKeyAccountID, accountID)
	c.Set(contextKeySessionID, sessionID)
}

// RequireSession verifies the bearer token (or the __session cookie) and sets
// the account and session ids in context. Responds 401 otherwise.
func RequireSession(v *Verifier, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := v.Verify(tokenFromRequest(c))
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Debug("authentication failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		SetPrincipal(c, claims.Subject, claims.SessionID)
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(sessionCookieName); err == nil {
		return cookie
	}
	return ""
}
