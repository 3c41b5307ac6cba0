package models

import (
	"time"
)

// ProductViewEvent is one product detail view streamed to the analytics store.
type ProductViewEvent struct {
	EventID   string    `json:"eventId"`
	VisitorID string    `json:"visitorId"`
	ProductID string    `json:"productId"`
	Timestamp time.Time `json:"timestamp"`
	PagePath  string    `json:"pagePath"`
	Referrer  string    `json:"referrer"`
	UserAgent string    `json:"userAgent"`
	IPAddress string    `json:"ipAddress"`
}

type TrackViewRequest struct {
	ProductID string `json:"productId" binding:"required"`
	PagePath  string `json:"pagePath"`
	Referrer  string `json:"referrer"`
}

type SelectTabRequest struct {
	Tab string `json:"tab" binding:"required"`
}

type ApplyCityRequest struct {
	City   string `json:"city"`
	Region string `json:"region"`
}

type LeaveFeedRequest struct {
	ScrollOffset float64 `json:"scrollOffset" binding:"gte=0"`
}

type ViewportRequest struct {
	Distance int `json:"distance"`
}
