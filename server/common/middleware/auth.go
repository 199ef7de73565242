package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techfranca/francaverso/server/common/transport/httpresp"
)

const ContextUserID = "session_user_id"

type sessionParser interface {
	Parse(token string) (userID string, err error)
}

// SessionRequired rejects requests without a valid session cookie before any
// handler or data access runs.
func SessionRequired(auth sessionParser, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrNotAuthenticated))
			return
		}
		userID, err := auth.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrInvalidSession))
			return
		}
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// SessionUserID returns the authenticated user id set by SessionRequired.
func SessionUserID(c *gin.Context) (string, error) {
	raw, ok := c.Get(ContextUserID)
	if !ok {
		return "", fmt.Errorf(httpresp.ErrNotAuthenticated)
	}
	userID, ok := raw.(string)
	if !ok || userID == "" {
		return "", fmt.Errorf(httpresp.ErrNotAuthenticated)
	}
	return userID, nil
}
