package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogItem is a read-only product snapshot as returned by a catalog query.
type CatalogItem struct {
	ID             string              `json:"id"`
	Title          string              `json:"title"`
	Price          decimal.Decimal     `json:"price"`
	CompareAtPrice decimal.NullDecimal `json:"compareAtPrice"`
	PromoPrice     decimal.NullDecimal `json:"promoPrice"`
	PromoStartsAt  *time.Time          `json:"promoStartsAt,omitempty"`
	PromoEndsAt    *time.Time          `json:"promoEndsAt,omitempty"`
	ImageURLs      []string            `json:"imageUrls"`
	RatingAvg      float64             `json:"ratingAvg"`
	RatingCount    int64               `json:"ratingCount"`
	OrdersCount    *int64              `json:"ordersCount,omitempty"`
	FreeShipping   bool                `json:"freeShipping"`
	ShopID         string              `json:"shopId"`
	Keywords       string              `json:"keywords,omitempty"`
	City           string              `json:"city,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// PromoActive reports whether the promo price applies at now.
// The window is [PromoStartsAt, PromoEndsAt); a missing bound is open.
func (i CatalogItem) PromoActive(now time.Time) bool {
	if !i.PromoPrice.Valid {
		return false
	}
	if i.PromoStartsAt != nil && now.Before(*i.PromoStartsAt) {
		return false
	}
	if i.PromoEndsAt != nil && !now.Before(*i.PromoEndsAt) {
		return false
	}
	return true
}

// DisplayPrice is the price a tile shows at now.
func (i CatalogItem) DisplayPrice(now time.Time) decimal.Decimal {
	if i.PromoActive(now) {
		return i.PromoPrice.Decimal
	}
	if i.CompareAtPrice.Valid && i.CompareAtPrice.Decimal.GreaterThan(i.Price) {
		return i.CompareAtPrice.Decimal
	}
	return i.Price
}

// CategoryPrimaryLink ties a product to the category it is principally classified under.
// Path is a slash-delimited materialized path such as "home/textiles/rugs".
type CategoryPrimaryLink struct {
	ProductID  string `json:"productId"`
	CategoryID string `json:"categoryId"`
	Path       string `json:"path"`
	Label      string `json:"label"`
}
