package feed

import (
	"storefeed/api/models"
)

// Status is the fetch controller's lifecycle state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusErrored Status = "errored"
)

// FetchState is the paginated grid state. Transitions are pure value functions.
type FetchState struct {
	Status        Status
	Tab           models.Tab
	Items         []models.CatalogItem
	Page          int
	HasMore       bool
	ErrorMessage  string // first-page failure, shown with a retry action
	LoadMoreError string // inline, non-blocking
	loadingMore   bool
}

// Loading reports whether any fetch is outstanding.
func (s FetchState) Loading() bool {
	return s.Status == StatusLoading || s.loadingMore
}

func (s FetchState) beginFirstPage(tab models.Tab) FetchState {
	return FetchState{
		Status:  StatusLoading,
		Tab:     tab,
		Page:    0,
		HasMore: false,
	}
}

func (s FetchState) firstPageLoaded(items []models.CatalogItem) FetchState {
	s.Status = StatusLoaded
	s.Items = items
	s.Page = 0
	s.HasMore = len(items) == PageSize
	s.ErrorMessage = ""
	return s
}

func (s FetchState) firstPageFailed(err error) FetchState {
	s.Status = StatusErrored
	s.Items = nil
	s.HasMore = false
	s.ErrorMessage = userMessage(err)
	return s
}

// canLoadMore is the guard for LoadMore.
func (s FetchState) canLoadMore() bool {
	return s.HasMore && !s.Loading()
}

func (s FetchState) beginLoadMore() FetchState {
	s.loadingMore = true
	s.LoadMoreError = ""
	return s
}

func (s FetchState) moreLoaded(items []models.CatalogItem) FetchState {
	s.loadingMore = false
	if len(items) == 0 {
		s.HasMore = false
		return s
	}
	merged := make([]models.CatalogItem, 0, len(s.Items)+len(items))
	merged = append(merged, s.Items...)
	merged = append(merged, items...)
	s.Items = merged
	s.Page++
	s.HasMore = len(items) == PageSize
	return s
}

func (s FetchState) moreFailed(err error) FetchState {
	s.loadingMore = false
	s.HasMore = false
	s.LoadMoreError = userMessage(err)
	return s
}

// hydrated rebuilds a settled state from a cached snapshot.
func hydrated(snap models.FeedState) FetchState {
	return FetchState{
		Status:  StatusLoaded,
		Tab:     snap.ActiveTab,
		Items:   snap.Items,
		Page:    snap.Page,
		HasMore: snap.HasMore,
	}
}
