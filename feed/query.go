package feed

import (
	"strings"

	"github.com/shopspring/decimal"

	"storefeed/api/models"
)

const (
	// PageSize is the number of rows per catalog page and per rail.
	PageSize = 24
)

// PriceCap is the upper bound of the under_cap tab, in currency units.
var PriceCap = decimal.NewFromInt(200)

// Catalog fields a QuerySpec may reference.
const (
	FieldID            = "id"
	FieldActive        = "is_active"
	FieldUnavailable   = "is_unavailable"
	FieldCreatedAt     = "created_at"
	FieldOrdersCount   = "orders_count"
	FieldPromoPrice    = "promo_price"
	FieldPromoStartsAt = "promo_starts_at"
	FieldPrice         = "price"
	FieldCity          = "city"
)

type Op string

const (
	OpEq      Op = "eq"
	OpNeq     Op = "neq"
	OpLte     Op = "lte"
	OpLike    Op = "like"
	OpIn      Op = "in"
	OpNotNull Op = "not_null"
)

// Filter is one predicate. For OpIn, Value holds a []string.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Order is one sort key.
type Order struct {
	Field      string
	Desc       bool
	NullsFirst bool
}

// QuerySpec describes a catalog query independently of the store that runs it.
// From and To are inclusive row offsets; To < 0 means unbounded.
type QuerySpec struct {
	Filters []Filter
	Orders  []Order
	From    int
	To      int
}

func (q QuerySpec) Where(field string, op Op, value any) QuerySpec {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: value})
	return q
}

func (q QuerySpec) OrderBy(field string, desc bool) QuerySpec {
	q.Orders = append(append([]Order(nil), q.Orders...), Order{Field: field, Desc: desc})
	return q
}

// Range sets the inclusive row window.
func (q QuerySpec) Range(from, to int) QuerySpec {
	q.From, q.To = from, to
	return q
}

// Page sets the row window of page n.
func (q QuerySpec) Page(n int) QuerySpec {
	return q.Range(n*PageSize, n*PageSize+PageSize-1)
}

// Limit returns the number of rows requested, or -1 when unbounded.
func (q QuerySpec) Limit() int {
	if q.To < 0 {
		return -1
	}
	return q.To - q.From + 1
}

// baseQuery is the filter every storefront query carries.
func baseQuery() QuerySpec {
	return QuerySpec{To: -1}.
		Where(FieldActive, OpEq, true).
		Where(FieldUnavailable, OpEq, false)
}

// ParseTab normalizes a raw tab name. Unknown values map to TabNew.
func ParseTab(raw string) models.Tab {
	switch t := models.Tab(strings.ToLower(strings.TrimSpace(raw))); t {
	case models.TabNew, models.TabPopular, models.TabSale, models.TabUnderCap, models.TabCity:
		return t
	default:
		return models.TabNew
	}
}

// ResolveTab returns the tab a query will actually run as.
func ResolveTab(tab models.Tab, city string) models.Tab {
	tab = ParseTab(string(tab))
	if tab == models.TabCity && strings.TrimSpace(city) == "" {
		return models.TabNew
	}
	return tab
}

// BuildQuery translates a tab into a catalog query. It is pure and never fails.
func BuildQuery(tab models.Tab, city string) QuerySpec {
	q := baseQuery()
	switch ResolveTab(tab, city) {
	case models.TabPopular:
		q = q.OrderBy(FieldOrdersCount, true).OrderBy(FieldCreatedAt, true)
	case models.TabSale:
		q = q.Where(FieldPromoPrice, OpNotNull, nil).
			OrderBy(FieldPromoStartsAt, true).
			OrderBy(FieldCreatedAt, true)
	case models.TabUnderCap:
		q = q.Where(FieldPrice, OpLte, PriceCap).OrderBy(FieldCreatedAt, true)
	case models.TabCity:
		q = q.Where(FieldCity, OpEq, strings.TrimSpace(city)).OrderBy(FieldCreatedAt, true)
	default:
		q = q.OrderBy(FieldCreatedAt, true)
	}
	return q
}

// itemsByIDQuery fetches up to limit storefront-visible items among ids.
func itemsByIDQuery(ids []string, limit int) QuerySpec {
	return baseQuery().
		Where(FieldID, OpIn, ids).
		OrderBy(FieldCreatedAt, true).
		Range(0, limit-1)
}

// cityQuery is the locality rail query. It does not go through the tab path.
func cityQuery(city string) QuerySpec {
	return baseQuery().
		Where(FieldCity, OpEq, city).
		OrderBy(FieldCreatedAt, true).
		Range(0, PageSize-1)
}
