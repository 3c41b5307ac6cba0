package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefeed/api/middleware"
)

// NewRouter mounts every endpoint. sink may be nil when analytics are disabled.
func NewRouter(visitors *Visitors, sink ViewSink, secret []byte, origin string) *gin.Engine {
	visitorHandlers := NewVisitorHandlers(visitors, secret)
	feedHandlers := NewFeedHandlers(visitors)
	trackHandlers := NewTrackHandlers(visitors, sink)

	r := gin.Default()
	r.Use(middleware.CORSMiddleware(origin))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/visitor", visitorHandlers.Start)

		protected := api.Group("/")
		protected.Use(middleware.VisitorRequired(secret))
		{
			protected.POST("/visitor/end", visitorHandlers.End)

			feedGroup := protected.Group("/feed")
			{
				feedGroup.GET("", feedHandlers.Mount)
				feedGroup.GET("/state", feedHandlers.State)
				feedGroup.POST("/leave", feedHandlers.Leave)
				feedGroup.POST("/tab", feedHandlers.SelectTab)
				feedGroup.POST("/more", feedHandlers.LoadMore)
				feedGroup.POST("/retry", feedHandlers.Retry)
				feedGroup.POST("/viewport", feedHandlers.Viewport)
			}

			protected.POST("/city", feedHandlers.ApplyCity)
			protected.POST("/track/view", trackHandlers.TrackView)
		}
	}
	return r
}
