package store

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"

	"storefeed/api/feed"
	"storefeed/api/models"
)

// BreakerSettings tunes BreakerCatalog.
type BreakerSettings struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{FailureThreshold: 5, OpenTimeout: 30 * time.Second}
}

// BreakerCatalog fails catalog queries fast while the data service keeps failing.
// Category lookups pass through unchanged.
type BreakerCatalog struct {
	next feed.Catalog
	cb   *gobreaker.CircuitBreaker[[]models.CatalogItem]
}

func NewBreakerCatalog(next feed.Catalog, s BreakerSettings) *BreakerCatalog {
	if s.FailureThreshold == 0 {
		s.FailureThreshold = DefaultBreakerSettings().FailureThreshold
	}
	settings := gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
		// A caller giving up is not a data service failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &BreakerCatalog{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[[]models.CatalogItem](settings),
	}
}

func (b *BreakerCatalog) Query(ctx context.Context, q feed.QuerySpec) ([]models.CatalogItem, error) {
	return b.cb.Execute(func() ([]models.CatalogItem, error) {
		return b.next.Query(ctx, q)
	})
}

// State reports the breaker state for health endpoints.
func (b *BreakerCatalog) State() gobreaker.State {
	return b.cb.State()
}
