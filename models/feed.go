package models

// Tab is a named catalog view.
type Tab string

const (
	TabNew      Tab = "new"
	TabPopular  Tab = "popular"
	TabSale     Tab = "sale"
	TabUnderCap Tab = "under_cap"
	TabCity     Tab = "city"
)

// TabOption is one entry of the generated tab list.
type TabOption struct {
	ID    Tab    `json:"id"`
	Label string `json:"label"`
}

// RecencyEntry is one product view in the visitor's browsing log.
type RecencyEntry struct {
	ProductID string `json:"id"`
	ViewedAt  int64  `json:"at"` // epoch millis
}

// PinnedCategoryPath keeps the "because you viewed" anchor stable for a while.
type PinnedCategoryPath struct {
	Path     string `json:"path"`
	PinnedAt int64  `json:"pinnedAt"` // epoch millis
}

// AffinityRail is a titled recommendation list. A nil rail means "not shown".
type AffinityRail struct {
	Title string        `json:"title"`
	Items []CatalogItem `json:"items"`
}

// CityPreference is the visitor's explicitly chosen city.
type CityPreference struct {
	City   string `json:"city"`
	Region string `json:"region,omitempty"`
}

// CityRail lists items located in the preferred city. Notice is set when Items is empty.
type CityRail struct {
	City   string        `json:"city"`
	Items  []CatalogItem `json:"items"`
	Notice string        `json:"notice,omitempty"`
}

// FeedState is the snapshot kept across navigations.
type FeedState struct {
	Items        []CatalogItem `json:"items"`
	Page         int           `json:"page"`
	HasMore      bool          `json:"hasMore"`
	ActiveTab    Tab           `json:"activeTab"`
	RecentlyRail *AffinityRail `json:"recentlyRail"`
	BecauseRail  *AffinityRail `json:"becauseRail"`
	ForYouRail   *AffinityRail `json:"forYouRail"`
	ScrollOffset float64       `json:"scrollOffset"`
}

// Clone returns a deep copy so cached snapshots never share slices with live state.
func (s FeedState) Clone() FeedState {
	out := s
	out.Items = cloneItems(s.Items)
	out.RecentlyRail = s.RecentlyRail.Clone()
	out.BecauseRail = s.BecauseRail.Clone()
	out.ForYouRail = s.ForYouRail.Clone()
	return out
}

func (r *AffinityRail) Clone() *AffinityRail {
	if r == nil {
		return nil
	}
	return &AffinityRail{Title: r.Title, Items: cloneItems(r.Items)}
}

func cloneItems(items []CatalogItem) []CatalogItem {
	if items == nil {
		return nil
	}
	out := make([]CatalogItem, len(items))
	copy(out, items)
	return out
}
