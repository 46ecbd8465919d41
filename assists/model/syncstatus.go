package model

import "time"

const StatusInProcess = "in_process"

// SyncStatus is one synchronization epoch anchored to a requested start date.
type SyncStatus struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	DateRequestSync   time.Time `gorm:"not null;index:idx_sync_status_date_request_sync" json:"dateRequestSync"`
	DateTimeStartSync time.Time `gorm:"not null" json:"dateTimeStartSync"`
	StatusSync        string    `gorm:"size:32;not null;default:in_process" json:"statusSync"`
	PageTotalSync     int       `gorm:"not null;default:0" json:"pageTotalSync"`
	ItemsTotalSync    int       `gorm:"not null;default:0" json:"itemsTotalSync"`
	// remote page size the epoch's page numbers refer to
	PageSizeSync int       `gorm:"not null;default:0" json:"pageSizeSync"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (SyncStatus) TableName() string {
	return "sync_status"
}
