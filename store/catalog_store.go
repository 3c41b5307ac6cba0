package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"storefeed/api/feed"
	"storefeed/api/models"
)

// CatalogStore reads the storefront catalog from Postgres. It never writes.
//
// Tables:
//
//	products(id, title, price, compare_at_price, promo_price, promo_starts_at, promo_ends_at,
//	         image_urls text[], rating_avg, rating_count, orders_count, free_shipping, shop_id,
//	         keywords, city, is_active, is_unavailable, created_at)
//	categories(id, path, label)
//	product_categories(product_id, category_id, is_primary)
type CatalogStore struct {
	db *sql.DB
}

func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

var catalogColumns = map[string]string{
	feed.FieldID:            "p.id",
	feed.FieldActive:        "p.is_active",
	feed.FieldUnavailable:   "p.is_unavailable",
	feed.FieldCreatedAt:     "p.created_at",
	feed.FieldOrdersCount:   "p.orders_count",
	feed.FieldPromoPrice:    "p.promo_price",
	feed.FieldPromoStartsAt: "p.promo_starts_at",
	feed.FieldPrice:         "p.price",
	feed.FieldCity:          "p.city",
}

const itemColumns = `p.id, p.title, p.price, p.compare_at_price, p.promo_price, p.promo_starts_at,
	p.promo_ends_at, p.image_urls, p.rating_avg, p.rating_count, p.orders_count, p.free_shipping,
	p.shop_id, p.keywords, p.city, p.created_at`

// renderQuery turns a QuerySpec into parameterized SQL. Field names are mapped through a
// whitelist; no QuerySpec value is interpolated into the statement.
func renderQuery(q feed.QuerySpec) (string, []any, error) {
	var (
		where []string
		args  []any
	)
	param := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, f := range q.Filters {
		col, ok := catalogColumns[f.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown filter field %q", f.Field)
		}
		switch f.Op {
		case feed.OpEq:
			where = append(where, col+" = "+param(f.Value))
		case feed.OpNeq:
			where = append(where, col+" <> "+param(f.Value))
		case feed.OpLte:
			where = append(where, col+" <= "+param(f.Value))
		case feed.OpLike:
			where = append(where, col+" LIKE "+param(f.Value))
		case feed.OpIn:
			values, ok := f.Value.([]string)
			if !ok {
				return "", nil, fmt.Errorf("filter %q: in expects []string, got %T", f.Field, f.Value)
			}
			where = append(where, col+" = ANY("+param(pq.Array(values))+")")
		case feed.OpNotNull:
			where = append(where, col+" IS NOT NULL")
		default:
			return "", nil, fmt.Errorf("unsupported filter op %q", f.Op)
		}
	}

	var order []string
	for _, o := range q.Orders {
		col, ok := catalogColumns[o.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown order field %q", o.Field)
		}
		dir, nulls := "ASC", "NULLS LAST"
		if o.Desc {
			dir = "DESC"
		}
		if o.NullsFirst {
			nulls = "NULLS FIRST"
		}
		order = append(order, col+" "+dir+" "+nulls)
	}

	var b strings.Builder
	b.WriteString("SELECT " + itemColumns + " FROM products p")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	if len(order) > 0 {
		b.WriteString(" ORDER BY " + strings.Join(order, ", "))
	}
	if limit := q.Limit(); limit >= 0 {
		b.WriteString(" LIMIT " + param(limit))
		if q.From > 0 {
			b.WriteString(" OFFSET " + param(q.From))
		}
	}
	return b.String(), args, nil
}

// Query runs q against the products table.
func (s *CatalogStore) Query(ctx context.Context, q feed.QuerySpec) ([]models.CatalogItem, error) {
	query, args, err := renderQuery(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	items := []models.CatalogItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalog rows: %w", err)
	}
	return items, nil
}

func scanItem(rows *sql.Rows) (models.CatalogItem, error) {
	var (
		item        models.CatalogItem
		promoStart  sql.NullTime
		promoEnd    sql.NullTime
		images      pq.StringArray
		ordersCount sql.NullInt64
		shopID      sql.NullString
		keywords    sql.NullString
		city        sql.NullString
		compareAt   decimal.NullDecimal
		promoPrice  decimal.NullDecimal
	)
	err := rows.Scan(
		&item.ID,
		&item.Title,
		&item.Price,
		&compareAt,
		&promoPrice,
		&promoStart,
		&promoEnd,
		&images,
		&item.RatingAvg,
		&item.RatingCount,
		&ordersCount,
		&item.FreeShipping,
		&shopID,
		&keywords,
		&city,
		&item.CreatedAt,
	)
	if err != nil {
		return models.CatalogItem{}, err
	}
	item.CompareAtPrice = compareAt
	item.PromoPrice = promoPrice
	item.PromoStartsAt = timePtr(promoStart)
	item.PromoEndsAt = timePtr(promoEnd)
	item.ImageURLs = []string(images)
	if ordersCount.Valid {
		n := ordersCount.Int64
		item.OrdersCount = &n
	}
	item.ShopID = shopID.String
	item.Keywords = keywords.String
	item.City = city.String
	return item, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// PrimaryCategories returns the primary category rows of the given products.
func (s *CatalogStore) PrimaryCategories(ctx context.Context, productIDs []string) ([]models.CategoryPrimaryLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pc.product_id, c.id, c.path, COALESCE(c.label, '')
		FROM product_categories pc
		JOIN categories c ON c.id = pc.category_id
		WHERE pc.is_primary AND pc.product_id = ANY($1)
		ORDER BY pc.product_id, pc.category_id
	`, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query primary categories: %w", err)
	}
	defer rows.Close()

	var links []models.CategoryPrimaryLink
	for rows.Next() {
		var link models.CategoryPrimaryLink
		if err := rows.Scan(&link.ProductID, &link.CategoryID, &link.Path, &link.Label); err != nil {
			return nil, fmt.Errorf("failed to scan primary category: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating primary categories: %w", err)
	}
	return links, nil
}

// CategoryIDsByPathPrefix returns the IDs of categories whose materialized path starts with prefix.
func (s *CatalogStore) CategoryIDsByPathPrefix(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM categories WHERE path LIKE $1 ESCAPE '\'
	`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query category subtree: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// ProductIDsByCategories returns up to limit distinct product IDs linked to categoryIDs.
func (s *CatalogStore) ProductIDsByCategories(ctx context.Context, categoryIDs []string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT product_id FROM product_categories
		WHERE category_id = ANY($1)
		LIMIT $2
	`, pq.Array(categoryIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query category products: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ids: %w", err)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
