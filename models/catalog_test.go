package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCatalogItem_DisplayPrice(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)
	promo := decimal.NewNullDecimal(decimal.RequireFromString("79.90"))
	compareAt := decimal.NewNullDecimal(decimal.NewFromInt(150))

	tests := []struct {
		name   string
		item   CatalogItem
		active bool
		want   string
	}{
		{"base price", CatalogItem{Price: decimal.NewFromInt(120)}, false, "120"},
		{"compare-at above base", CatalogItem{Price: decimal.NewFromInt(120), CompareAtPrice: compareAt}, false, "150"},
		{"compare-at below base", CatalogItem{Price: decimal.NewFromInt(200), CompareAtPrice: compareAt}, false, "200"},
		{"open promo window", CatalogItem{Price: decimal.NewFromInt(120), PromoPrice: promo}, true, "79.9"},
		{"inside window", CatalogItem{Price: decimal.NewFromInt(120), PromoPrice: promo, PromoStartsAt: &before, PromoEndsAt: &after}, true, "79.9"},
		{"not started", CatalogItem{Price: decimal.NewFromInt(120), PromoPrice: promo, PromoStartsAt: &after}, false, "120"},
		{"ended", CatalogItem{Price: decimal.NewFromInt(120), CompareAtPrice: compareAt, PromoPrice: promo, PromoEndsAt: &before}, false, "150"},
		{"ends exactly now", CatalogItem{Price: decimal.NewFromInt(120), PromoPrice: promo, PromoEndsAt: &now}, false, "120"},
		{"starts exactly now", CatalogItem{Price: decimal.NewFromInt(120), PromoPrice: promo, PromoStartsAt: &now}, true, "79.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.active, tt.item.PromoActive(now))
			assert.Equal(t, tt.want, tt.item.DisplayPrice(now).String())
		})
	}
}

func TestFeedState_CloneIsDeep(t *testing.T) {
	s := FeedState{
		Items:       []CatalogItem{{ID: "a"}},
		BecauseRail: &AffinityRail{Title: "Rugs you'll love", Items: []CatalogItem{{ID: "b"}}},
	}
	c := s.Clone()
	c.Items[0].ID = "changed"
	c.BecauseRail.Items[0].ID = "changed"

	assert.Equal(t, "a", s.Items[0].ID)
	assert.Equal(t, "b", s.BecauseRail.Items[0].ID)
	assert.Nil(t, c.RecentlyRail)
}
