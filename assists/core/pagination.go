package core

import (
	"axiapac.com/biometrics/assists/model"
	v1 "axiapac.com/biometrics/biometrics/v1"
)

// Totals is the remote pagination as observed on the latest fetch.
type Totals struct {
	PageSize   int
	TotalItems int
	TotalPages int
}

// TotalsFrom reads the pagination block, using limit when the API omits pageSize.
func TotalsFrom(p v1.Pagination, limit int) Totals {
	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = limit
	}
	return Totals{
		PageSize:   pageSize,
		TotalItems: max(p.TotalItems, 0),
		TotalPages: max(p.TotalPages, 0),
	}
}

// ExpectedItemsCount is PageSize for every page but the last, which holds the remainder.
func ExpectedItemsCount(pageNumber int, t Totals) int {
	if pageNumber < 1 || pageNumber > t.TotalPages || t.PageSize <= 0 {
		return 0
	}
	if pageNumber < t.TotalPages {
		return t.PageSize
	}
	remainder := t.TotalItems - t.PageSize*(t.TotalPages-1)
	return min(max(remainder, 0), t.PageSize)
}

// BuildTrackers creates the full page set 1..TotalPages for an epoch.
// syncedPage is marked sync, every other page pending.
func BuildTrackers(statusID uint, t Totals, syncedPage int) []model.PageSyncTracker {
	trackers := make([]model.PageSyncTracker, 0, t.TotalPages)
	for n := 1; n <= t.TotalPages; n++ {
		status := model.PageStatusPending
		if n == syncedPage {
			status = model.PageStatusSync
		}
		trackers = append(trackers, model.PageSyncTracker{
			StatusSyncID: statusID,
			PageNumber:   n,
			PageStatus:   status,
			ItemsCount:   ExpectedItemsCount(n, t),
		})
	}
	return trackers
}

// ReconcileTrackers revalidates trackers against fresh totals. A page stays sync
// only when it already is and its stored count still matches the expected count.
// It returns the trackers that changed and the page numbers that must be created.
func ReconcileTrackers(statusID uint, existing []model.PageSyncTracker, t Totals) (changed []model.PageSyncTracker, created []model.PageSyncTracker) {
	byPage := make(map[int]model.PageSyncTracker, len(existing))
	for _, tracker := range existing {
		byPage[tracker.PageNumber] = tracker
	}

	for n := 1; n <= t.TotalPages; n++ {
		expected := ExpectedItemsCount(n, t)
		tracker, ok := byPage[n]
		if !ok {
			created = append(created, model.PageSyncTracker{
				StatusSyncID: statusID,
				PageNumber:   n,
				PageStatus:   model.PageStatusPending,
				ItemsCount:   expected,
			})
			continue
		}
		if tracker.IsSynced() && tracker.ItemsCount == expected {
			continue
		}
		if tracker.PageStatus == model.PageStatusPending && tracker.ItemsCount == expected {
			continue
		}
		tracker.PageStatus = model.PageStatusPending
		tracker.ItemsCount = expected
		changed = append(changed, tracker)
	}
	return changed, created
}
