package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"storefeed/api/middleware"
	"storefeed/api/utils"
)

type VisitorHandlers struct {
	Visitors *Visitors
	secret   []byte
}

func NewVisitorHandlers(visitors *Visitors, secret []byte) *VisitorHandlers {
	return &VisitorHandlers{Visitors: visitors, secret: secret}
}

// Start issues an anonymous visitor token, or keeps the current one if it is still valid.
func (h *VisitorHandlers) Start(c *gin.Context) {
	if tokenString, err := c.Cookie(middleware.VisitorCookie); err == nil && tokenString != "" {
		if claims, err := utils.ValidateVisitorJWT(h.secret, tokenString); err == nil {
			c.JSON(http.StatusOK, gin.H{"visitor_id": claims.VisitorID, "token": tokenString})
			return
		}
	}

	visitorID := uuid.New().String()
	tokenString, err := utils.GenerateVisitorJWT(h.secret, visitorID, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("generating visitor token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start visitor session"})
		return
	}

	c.SetCookie(
		middleware.VisitorCookie,
		tokenString,
		int(utils.VisitorTokenTTL/time.Second),
		"/",
		"",
		false,
		true,
	)

	log.Info().Str("visitor_id", visitorID).Msg("visitor session started")
	c.JSON(http.StatusCreated, gin.H{"visitor_id": visitorID, "token": tokenString})
}

// End forgets the visitor's in-memory feed and clears the cookie. Persisted
// preferences and the browsing log are kept.
func (h *VisitorHandlers) End(c *gin.Context) {
	h.Visitors.Forget(c.GetString("visitor_id"))

	c.SetCookie(
		middleware.VisitorCookie,
		"",
		-1,
		"/",
		"",
		false,
		true,
	)
	c.JSON(http.StatusOK, gin.H{"message": "Visitor session ended"})
}
