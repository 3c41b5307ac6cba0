package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"storefeed/api/database"
	"storefeed/api/models"
)

// AnalyticsStore streams product view events into ClickHouse.
type AnalyticsStore struct {
	DB *database.ClickHouseClient
}

func NewAnalyticsStore(chClient *database.ClickHouseClient) *AnalyticsStore {
	return &AnalyticsStore{
		DB: chClient,
	}
}

// InsertProductViews writes events in one batch. Column order must match the product_views table.
func (s *AnalyticsStore) InsertProductViews(ctx context.Context, events []models.ProductViewEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO product_views (
			event_id, visitor_id, product_id, timestamp, page_path, referrer, user_agent, ip_address
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, event := range events {
		err := batch.Append(
			event.EventID,
			event.VisitorID,
			event.ProductID,
			event.Timestamp,
			event.PagePath,
			event.Referrer,
			event.UserAgent,
			event.IPAddress,
		)
		if err != nil {
			log.Warn().Err(err).Str("event_id", event.EventID).Msg("appending product view to batch")
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Debug().Int("count", len(events)).Msg("inserted product views")
	return nil
}
