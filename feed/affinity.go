package feed

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"storefeed/api/models"
)

// CandidateCap bounds the subtree candidate list before trimming to a rail.
const CandidateCap = 220

// CategoryRef is a product's primary category.
type CategoryRef struct {
	ID    string
	Path  string
	Label string
}

// AffinityResolver derives anchor categories and rail candidates from browsing history.
type AffinityResolver struct {
	lookup CategoryLookup
}

func NewAffinityResolver(lookup CategoryLookup) *AffinityResolver {
	return &AffinityResolver{lookup: lookup}
}

// PrimaryCategories maps each product to its primary category. When the data service
// returns several primary rows for one product, the first one wins.
func (r *AffinityResolver) PrimaryCategories(ctx context.Context, productIDs []string) (map[string]CategoryRef, error) {
	out := make(map[string]CategoryRef, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	links, err := r.lookup.PrimaryCategories(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("primary category lookup: %w", err)
	}
	for _, link := range links {
		if link.Path == "" {
			continue
		}
		if _, seen := out[link.ProductID]; seen {
			continue
		}
		out[link.ProductID] = CategoryRef{ID: link.CategoryID, Path: link.Path, Label: link.Label}
	}
	return out, nil
}

// Candidates returns up to CandidateCap products in the subtree rooted at anchorPath,
// excluding every ID in exclude.
func (r *AffinityResolver) Candidates(ctx context.Context, anchorPath string, exclude map[string]struct{}) ([]string, error) {
	categoryIDs, err := r.lookup.CategoryIDsByPathPrefix(ctx, anchorPath)
	if err != nil {
		return nil, fmt.Errorf("subtree lookup for %q: %w", anchorPath, err)
	}
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	productIDs, err := r.lookup.ProductIDsByCategories(ctx, categoryIDs, CandidateCap+len(exclude))
	if err != nil {
		return nil, fmt.Errorf("subtree products for %q: %w", anchorPath, err)
	}

	seen := make(map[string]struct{}, len(productIDs))
	out := make([]string, 0, min(len(productIDs), CandidateCap))
	for _, id := range productIDs {
		if _, skip := exclude[id]; skip {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
		if len(out) == CandidateCap {
			break
		}
	}
	return out, nil
}

// BecauseAnchor anchors on the most recently viewed product. ok is false when that
// product has no primary category.
func BecauseAnchor(entries []models.RecencyEntry, primaries map[string]CategoryRef) (productID string, ref CategoryRef, ok bool) {
	if len(entries) == 0 {
		return "", CategoryRef{}, false
	}
	productID = entries[0].ProductID
	ref, ok = primaries[productID]
	return productID, ref, ok
}

// ForYouAnchor picks the primary path seen most often across entries. Ties go to the
// path seen first, scanning most-recent-first.
func ForYouAnchor(entries []models.RecencyEntry, primaries map[string]CategoryRef) (CategoryRef, bool) {
	counts := make(map[string]int)
	var order []string
	refs := make(map[string]CategoryRef)
	for _, e := range entries {
		ref, ok := primaries[e.ProductID]
		if !ok {
			continue
		}
		if _, seen := counts[ref.Path]; !seen {
			order = append(order, ref.Path)
			refs[ref.Path] = ref
		}
		counts[ref.Path]++
	}
	best := ""
	for _, path := range order {
		if best == "" || counts[path] > counts[best] {
			best = path
		}
	}
	if best == "" {
		return CategoryRef{}, false
	}
	return refs[best], true
}

// RailLabel humanizes the last segment of a materialized path: "home-decor/area-rugs" -> "Area Rugs".
func RailLabel(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	words := strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(path))
	// Casers carry state and are not shared between goroutines.
	return cases.Title(language.English).String(strings.Join(words, " "))
}

func becauseTitle(path string) string {
	return RailLabel(path) + " you'll love"
}

func forYouTitle(path string) string {
	return "More " + strings.ToLower(RailLabel(path)) + " for you"
}
