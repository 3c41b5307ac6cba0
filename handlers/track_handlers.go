package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"storefeed/api/models"
)

// ViewSink receives product view events for analytics.
type ViewSink interface {
	InsertProductViews(ctx context.Context, events []models.ProductViewEvent) error
}

type TrackHandlers struct {
	Visitors *Visitors
	Sink     ViewSink // optional
}

func NewTrackHandlers(visitors *Visitors, sink ViewSink) *TrackHandlers {
	return &TrackHandlers{Visitors: visitors, Sink: sink}
}

// TrackView is called by the product detail page. It records the product in the
// visitor's browsing log and forwards the view to analytics on a best-effort basis.
func (h *TrackHandlers) TrackView(c *gin.Context) {
	var req models.TrackViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	visitorID := c.GetString("visitor_id")
	if err := h.Visitors.Engine(visitorID).Recency().Record(c.Request.Context(), req.ProductID); err != nil {
		log.Error().Err(err).Str("visitor_id", visitorID).Msg("recording product view")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record product view"})
		return
	}

	if h.Sink != nil {
		event := models.ProductViewEvent{
			EventID:   uuid.New().String(),
			VisitorID: visitorID,
			ProductID: req.ProductID,
			Timestamp: time.Now().UTC(),
			PagePath:  req.PagePath,
			Referrer:  req.Referrer,
			UserAgent: c.Request.UserAgent(),
			IPAddress: c.ClientIP(),
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()
		if err := h.Sink.InsertProductViews(ctx, []models.ProductViewEvent{event}); err != nil {
			log.Warn().Err(err).Msg("inserting product view into ClickHouse")
		}
	}

	c.Status(http.StatusNoContent)
}
