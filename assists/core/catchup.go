package core

import (
	"context"
	"errors"
	"time"

	"axiapac.com/biometrics/assists/model"
	"axiapac.com/biometrics/utils"
	"go.uber.org/zap"
)

type CatchUpStats struct {
	StatusID       uint   `json:"statusId"`
	Branch         Branch `json:"branch"`
	Rounds         int    `json:"rounds"`
	PagesFetched   int    `json:"pagesFetched"`
	RecordsStored  int    `json:"recordsStored"`
	PendingPages   int64  `json:"pendingPages"`
	TotalApiPages  int    `json:"totalApiPages"`
	TotalApiItems  int    `json:"totalApiItems"`
	DurationMillis int64  `json:"durationMillis"`
}

// CatchUp synchronizes up to the last known page repeatedly until no page of the
// epoch is pending or the configured number of rounds is used up.
func (s *Service) CatchUp(ctx context.Context, startDate time.Time, limit int) (*CatchUpStats, error) {
	params, err := s.normalize(SyncParams{StartDate: startDate, Page: 1, Limit: limit})
	if err != nil {
		return nil, err
	}
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	startedAt := s.now()
	stats := &CatchUpStats{}

	page := 1
	if latest, err := s.store.LatestStatus(ctx); err == nil {
		page = lastKnownPage(latest)
	} else if !errors.Is(err, ErrNoEpoch) {
		return nil, err
	}

	for stats.Rounds < s.config.CatchUpRounds {
		params.Page = page
		outcome, err := s.synchronize(ctx, params)
		if err != nil {
			return stats, err
		}
		stats.Rounds++
		if stats.Rounds == 1 {
			stats.Branch = outcome.branch
		}
		stats.StatusID = outcome.status.ID
		stats.PagesFetched += outcome.pagesFetched
		stats.RecordsStored += outcome.recordsStored
		stats.TotalApiPages = outcome.status.PageTotalSync
		stats.TotalApiItems = outcome.status.ItemsTotalSync

		stats.PendingPages, err = s.store.CountPending(ctx, outcome.status)
		if err != nil {
			return stats, err
		}
		if stats.PendingPages == 0 {
			break
		}
		page = lastKnownPage(outcome.status)
	}

	stats.DurationMillis = s.now().Sub(startedAt).Milliseconds()
	s.logger.Info("Attendance catch-up finished",
		zap.Time("start_date", params.StartDate),
		zap.Int("rounds", stats.Rounds),
		zap.Int("pages_fetched", stats.PagesFetched),
		zap.Int("records_stored", stats.RecordsStored),
		zap.Int64("pending_pages", stats.PendingPages))
	return stats, nil
}

// StartPeriodicSync starts a background goroutine that catches up every interval,
// starting lookbackDays before today (UTC midnight).
func (s *Service) StartPeriodicSync(interval time.Duration, lookbackDays int) {
	if interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.logger.Info("Started periodic attendance sync",
			zap.Duration("interval", interval),
			zap.Int("lookback_days", lookbackDays))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), max(interval, time.Minute))
				startDate := utils.StartOfDayUTC(s.now()).AddDate(0, 0, -lookbackDays)
				if _, err := s.CatchUp(ctx, startDate, s.config.DefaultLimit); err != nil {
					s.logger.Error("Periodic attendance sync failed", zap.Error(err))
				}
				cancel()
			case <-s.stopCh:
				s.logger.Info("Stopping periodic attendance sync")
				return
			}
		}
	}()
}

// Stop stops the periodic sync
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

type EpochStatus struct {
	Status       *model.SyncStatus       `json:"status"`
	PendingPages int                     `json:"pendingPages"`
	SyncedPages  int                     `json:"syncedPages"`
	Trackers     []model.PageSyncTracker `json:"trackers"`
}

// Status reports the latest epoch and its page trackers. Returns ErrNoEpoch before
// the first synchronization.
func (s *Service) Status(ctx context.Context) (*EpochStatus, error) {
	status, err := s.store.LatestStatus(ctx)
	if err != nil {
		return nil, err
	}
	trackers, err := s.store.Trackers(ctx, status.ID)
	if err != nil {
		return nil, err
	}

	result := &EpochStatus{Status: status, Trackers: trackers}
	for _, tracker := range trackers {
		if tracker.IsSynced() {
			result.SyncedPages++
		} else {
			result.PendingPages++
		}
	}
	return result, nil
}
