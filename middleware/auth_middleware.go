package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"storefeed/api/utils"
)

// VisitorCookie carries the visitor token between requests.
const VisitorCookie = "visitor_token"

// VisitorRequired resolves the visitor from the cookie or a Bearer header and stores
// its ID under "visitor_id".
func VisitorRequired(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(VisitorCookie)
		if err != nil || tokenString == "" {
			tokenString = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
			if tokenString == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No visitor token provided"})
				return
			}
		}
		claims, err := utils.ValidateVisitorJWT(secret, tokenString)
		if err != nil {
			log.Debug().Err(err).Msg("rejecting visitor token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired visitor token"})
			return
		}

		c.Set("visitor_id", claims.VisitorID)
		c.Next()
	}
}
