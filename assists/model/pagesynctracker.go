package model

import "time"

const (
	PageStatusPending = "pending"
	PageStatusSync    = "sync"
)

// PageSyncTracker records the progress of one remote page within a SyncStatus epoch.
type PageSyncTracker struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	StatusSyncID uint      `gorm:"not null;uniqueIndex:idx_page_sync_trackers_status_page,priority:1" json:"statusSyncId"`
	PageNumber   int       `gorm:"not null;uniqueIndex:idx_page_sync_trackers_status_page,priority:2" json:"pageNumber"`
	PageStatus   string    `gorm:"size:16;not null;default:pending" json:"pageStatus"`
	ItemsCount   int       `gorm:"not null;default:0" json:"itemsCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (PageSyncTracker) TableName() string {
	return "page_sync_trackers"
}

func (t PageSyncTracker) IsSynced() bool {
	return t.PageStatus == PageStatusSync
}
