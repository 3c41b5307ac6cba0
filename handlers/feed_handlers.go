package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"storefeed/api/feed"
	"storefeed/api/models"
)

// FeedHandlers expose the feed contract of the calling visitor. Fetch failures are part
// of the returned view, so these endpoints answer 200 unless the request itself is bad.
type FeedHandlers struct {
	Visitors *Visitors
}

func NewFeedHandlers(visitors *Visitors) *FeedHandlers {
	return &FeedHandlers{Visitors: visitors}
}

func (h *FeedHandlers) engine(c *gin.Context) *feed.Engine {
	return h.Visitors.Engine(c.GetString("visitor_id"))
}

// Mount enters the feed: restores the cached feed or loads the first page.
func (h *FeedHandlers) Mount(c *gin.Context) {
	e := h.engine(c)
	restored := e.Mount(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"restored": restored, "feed": e.View()})
}

// State returns the current view without fetching anything.
func (h *FeedHandlers) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine(c).View())
}

// Leave snapshots the feed and scroll offset before the visitor navigates away.
func (h *FeedHandlers) Leave(c *gin.Context) {
	var req models.LeaveFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	h.engine(c).Unmount(req.ScrollOffset)
	c.Status(http.StatusNoContent)
}

func (h *FeedHandlers) SelectTab(c *gin.Context) {
	var req models.SelectTabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	e := h.engine(c)
	if err := e.SelectTab(c.Request.Context(), feed.ParseTab(req.Tab)); err != nil {
		log.Debug().Err(err).Str("tab", req.Tab).Msg("tab load failed")
	}
	c.JSON(http.StatusOK, e.View())
}

func (h *FeedHandlers) LoadMore(c *gin.Context) {
	e := h.engine(c)
	if err := e.LoadMore(c.Request.Context()); err != nil {
		log.Debug().Err(err).Msg("load more failed")
	}
	c.JSON(http.StatusOK, e.View())
}

func (h *FeedHandlers) Retry(c *gin.Context) {
	e := h.engine(c)
	if err := e.Retry(c.Request.Context()); err != nil {
		log.Debug().Err(err).Msg("retry failed")
	}
	c.JSON(http.StatusOK, e.View())
}

// Viewport receives sentinel visibility signals; loading happens in the background.
func (h *FeedHandlers) Viewport(c *gin.Context) {
	var req models.ViewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	h.engine(c).ObserveSentinel(req.Distance)
	c.Status(http.StatusAccepted)
}

func (h *FeedHandlers) ApplyCity(c *gin.Context) {
	var req models.ApplyCityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	e := h.engine(c)
	if err := e.ApplyCity(c.Request.Context(), req.City, req.Region); err != nil {
		if feed.Is(err, feed.ErrTimeout) || feed.Is(err, feed.ErrQuery) {
			c.JSON(http.StatusOK, e.View())
			return
		}
		log.Error().Err(err).Msg("saving city preference")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save city preference"})
		return
	}
	c.JSON(http.StatusOK, e.View())
}
