package feed

import (
	"context"

	"storefeed/api/models"
)

// Catalog runs read-only catalog queries. An empty result is not an error.
type Catalog interface {
	Query(ctx context.Context, q QuerySpec) ([]models.CatalogItem, error)
}

// CategoryLookup is the category/affinity side of the data service.
type CategoryLookup interface {
	// PrimaryCategories returns primary links for the given products, possibly several per product.
	PrimaryCategories(ctx context.Context, productIDs []string) ([]models.CategoryPrimaryLink, error)
	// CategoryIDsByPathPrefix returns every category whose path starts with prefix.
	CategoryIDsByPathPrefix(ctx context.Context, prefix string) ([]string, error)
	// ProductIDsByCategories returns up to limit distinct products linked to any of categoryIDs.
	ProductIDsByCategories(ctx context.Context, categoryIDs []string, limit int) ([]string, error)
}

// KV is a string key-value store scoped to one visitor.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
