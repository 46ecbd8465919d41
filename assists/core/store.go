package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"axiapac.com/biometrics/assists/model"
	"axiapac.com/biometrics/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNoEpoch = errors.New("no sync epoch recorded")

const upsertBatchSize = 500

// Store persists sync epochs, page trackers and attendance records.
// Every exported write runs in its own transaction.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Migrate creates or updates the assists tables.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(model.Models()...)
}

// LatestStatus returns the epoch with the most recent date_request_sync, or ErrNoEpoch.
func (s *Store) LatestStatus(ctx context.Context) (*model.SyncStatus, error) {
	var status model.SyncStatus
	err := s.db.WithContext(ctx).
		Order("date_request_sync DESC").
		Order("id DESC").
		Take(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoEpoch
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest sync status: %w", err)
	}
	return &status, nil
}

// OpenEpoch creates a new epoch with its trackers and stores the first fetched page.
func (s *Store) OpenEpoch(ctx context.Context, requestedDate time.Time, totals Totals, fetchedPage int, records []model.AssistRecord) (*model.SyncStatus, error) {
	status := &model.SyncStatus{
		DateRequestSync:   requestedDate.UTC(),
		DateTimeStartSync: s.now().UTC(),
		StatusSync:        model.StatusInProcess,
		PageTotalSync:     totals.TotalPages,
		ItemsTotalSync:    totals.TotalItems,
		PageSizeSync:      totals.PageSize,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(status).Error; err != nil {
			return fmt.Errorf("failed to create sync status: %w", err)
		}
		if err := createTrackers(tx, BuildTrackers(status.ID, totals, fetchedPage)); err != nil {
			return err
		}
		return upsertAssists(tx, records)
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// ResetEpoch rewrites status in place for a new requested date, replacing all of its
// trackers, and stores the first fetched page.
func (s *Store) ResetEpoch(ctx context.Context, status *model.SyncStatus, requestedDate time.Time, totals Totals, fetchedPage int, records []model.AssistRecord) error {
	updated := *status
	updated.DateRequestSync = requestedDate.UTC()
	updated.DateTimeStartSync = s.now().UTC()
	updated.StatusSync = model.StatusInProcess
	updated.PageTotalSync = totals.TotalPages
	updated.ItemsTotalSync = totals.TotalItems
	updated.PageSizeSync = totals.PageSize

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.SyncStatus{}).Where("id = ?", status.ID).Updates(map[string]interface{}{
			"date_request_sync":    updated.DateRequestSync,
			"date_time_start_sync": updated.DateTimeStartSync,
			"status_sync":          updated.StatusSync,
			"page_total_sync":      updated.PageTotalSync,
			"items_total_sync":     updated.ItemsTotalSync,
			"page_size_sync":       updated.PageSizeSync,
		}).Error; err != nil {
			return fmt.Errorf("failed to reset sync status %d: %w", status.ID, err)
		}
		if err := tx.Where("status_sync_id = ?", status.ID).Delete(&model.PageSyncTracker{}).Error; err != nil {
			return fmt.Errorf("failed to delete trackers of sync status %d: %w", status.ID, err)
		}
		if err := createTrackers(tx, BuildTrackers(status.ID, totals, fetchedPage)); err != nil {
			return err
		}
		return upsertAssists(tx, records)
	})
	if err != nil {
		return err
	}
	*status = updated
	return nil
}

// Trackers lists every tracker of an epoch by page number.
func (s *Store) Trackers(ctx context.Context, statusID uint) ([]model.PageSyncTracker, error) {
	var trackers []model.PageSyncTracker
	if err := s.db.WithContext(ctx).
		Where("status_sync_id = ?", statusID).
		Order("page_number ASC").
		Find(&trackers).Error; err != nil {
		return nil, fmt.Errorf("failed to load trackers of sync status %d: %w", statusID, err)
	}
	return trackers, nil
}

// PagesToSync returns the pending page numbers <= page in ascending order. When none
// are pending and page is the last known page, the last page alone is returned so
// punches appended upstream since the previous fetch are picked up.
func (s *Store) PagesToSync(ctx context.Context, status *model.SyncStatus, page int) ([]int, error) {
	var pages []int
	if err := s.db.WithContext(ctx).
		Model(&model.PageSyncTracker{}).
		Where("status_sync_id = ? AND page_number <= ? AND page_number <= ? AND page_status = ?",
			status.ID, page, status.PageTotalSync, model.PageStatusPending).
		Order("page_number ASC").
		Pluck("page_number", &pages).Error; err != nil {
		return nil, fmt.Errorf("failed to load pending pages of sync status %d: %w", status.ID, err)
	}

	if len(pages) == 0 && page == lastKnownPage(status) {
		return []int{page}, nil
	}
	return pages, nil
}

// an epoch that saw no items still refreshes page 1
func lastKnownPage(status *model.SyncStatus) int {
	return max(status.PageTotalSync, 1)
}

// CountPending counts pending trackers within the epoch's current page range.
func (s *Store) CountPending(ctx context.Context, status *model.SyncStatus) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&model.PageSyncTracker{}).
		Where("status_sync_id = ? AND page_number <= ? AND page_status = ?",
			status.ID, status.PageTotalSync, model.PageStatusPending).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count pending pages of sync status %d: %w", status.ID, err)
	}
	return count, nil
}

// CommitPage stores one fetched page: upserts its records, marks its tracker sync with
// the number of items received, revalidates every tracker against the fresh totals
// and updates the epoch totals.
func (s *Store) CommitPage(ctx context.Context, status *model.SyncStatus, pageNumber, received int, totals Totals, records []model.AssistRecord) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertAssists(tx, records); err != nil {
			return err
		}

		result := tx.Model(&model.PageSyncTracker{}).
			Where("status_sync_id = ? AND page_number = ?", status.ID, pageNumber).
			Updates(map[string]interface{}{
				"page_status": model.PageStatusSync,
				"items_count": received,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to mark page %d synced: %w", pageNumber, result.Error)
		}
		if result.RowsAffected == 0 {
			if err := createTrackers(tx, []model.PageSyncTracker{{
				StatusSyncID: status.ID,
				PageNumber:   pageNumber,
				PageStatus:   model.PageStatusSync,
				ItemsCount:   received,
			}}); err != nil {
				return err
			}
		}

		return updatePagination(tx, status, totals)
	})
	if err != nil {
		return err
	}

	status.PageTotalSync = totals.TotalPages
	status.ItemsTotalSync = totals.TotalItems
	return nil
}

func updatePagination(tx *gorm.DB, status *model.SyncStatus, totals Totals) error {
	var existing []model.PageSyncTracker
	if err := tx.Where("status_sync_id = ?", status.ID).Find(&existing).Error; err != nil {
		return fmt.Errorf("failed to load trackers of sync status %d: %w", status.ID, err)
	}

	changed, created := ReconcileTrackers(status.ID, existing, totals)
	for _, tracker := range changed {
		if err := tx.Model(&model.PageSyncTracker{}).
			Where("id = ?", tracker.ID).
			Updates(map[string]interface{}{
				"page_status": tracker.PageStatus,
				"items_count": tracker.ItemsCount,
			}).Error; err != nil {
			return fmt.Errorf("failed to update tracker for page %d: %w", tracker.PageNumber, err)
		}
	}
	if err := createTrackers(tx, created); err != nil {
		return err
	}

	if err := tx.Model(&model.SyncStatus{}).Where("id = ?", status.ID).Updates(map[string]interface{}{
		"page_total_sync":  totals.TotalPages,
		"items_total_sync": totals.TotalItems,
	}).Error; err != nil {
		return fmt.Errorf("failed to update totals of sync status %d: %w", status.ID, err)
	}
	return nil
}

func createTrackers(tx *gorm.DB, trackers []model.PageSyncTracker) error {
	if len(trackers) == 0 {
		return nil
	}
	if err := tx.CreateInBatches(&trackers, upsertBatchSize).Error; err != nil {
		return fmt.Errorf("failed to create page trackers: %w", err)
	}
	return nil
}

// UpsertAssists inserts new records and fully overwrites known ones, keyed by
// external_sync_id. Duplicate ids within records collapse to the last occurrence.
func (s *Store) UpsertAssists(ctx context.Context, records []model.AssistRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertAssists(tx, records)
	})
}

func upsertAssists(tx *gorm.DB, records []model.AssistRecord) error {
	records = utils.DedupeBy(records, func(r model.AssistRecord) string { return r.ExternalSyncID })
	if len(records) == 0 {
		return nil
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_sync_id"}}, // conflict key
		DoUpdates: clause.AssignmentColumns(model.MutableColumns),
	}).CreateInBatches(&records, upsertBatchSize).Error; err != nil {
		return fmt.Errorf("failed to upsert %d assist records: %w", len(records), err)
	}
	return nil
}

// SearchAssists pages through records punched strictly after the given time, oldest first.
func (s *Store) SearchAssists(ctx context.Context, after time.Time, page, limit int) ([]model.AssistRecord, int64, error) {
	query := s.db.WithContext(ctx).
		Model(&model.AssistRecord{}).
		Where("punch_time > ?", after.UTC()).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count assist records: %w", err)
	}

	records := []model.AssistRecord{}
	if err := query.
		Order("punch_time ASC").
		Order("id ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to search assist records: %w", err)
	}
	return records, total, nil
}

// AssistsBetween returns records with from < punch_time <= to, oldest first.
func (s *Store) AssistsBetween(ctx context.Context, from, to time.Time) ([]model.AssistRecord, error) {
	var records []model.AssistRecord
	if err := s.db.WithContext(ctx).
		Where("punch_time > ? AND punch_time <= ?", from.UTC(), to.UTC()).
		Order("punch_time ASC").
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load assist records: %w", err)
	}
	return records, nil
}

// FindAssist looks a record up by its external id.
func (s *Store) FindAssist(ctx context.Context, externalSyncID string) (*model.AssistRecord, error) {
	var record model.AssistRecord
	if err := s.db.WithContext(ctx).
		Where("external_sync_id = ?", externalSyncID).
		Take(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}
