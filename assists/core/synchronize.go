package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"axiapac.com/biometrics/assists/model"
	v1 "axiapac.com/biometrics/biometrics/v1"
	"axiapac.com/biometrics/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidSyncParams = errors.New("page and limit must be >= 1")
	ErrLockUnavailable   = errors.New("another synchronization is in progress")
)

// FetchError wraps a failure of the remote attendance API.
type FetchError struct {
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch attendance page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

const DefaultLimit = 50

// AttendanceClient fetches one page of remote punches from startDate onward.
type AttendanceClient interface {
	FetchPage(ctx context.Context, startDate time.Time, page, limit int) (*v1.TransactionPage, error)
}

type Branch string

const (
	BranchOpen   Branch = "open"
	BranchReset  Branch = "reset"
	BranchResume Branch = "resume"
)

type SyncParams struct {
	StartDate time.Time
	Page      int
	Limit     int
}

type PageMeta struct {
	Total         int64 `json:"total"`
	PerPage       int   `json:"per_page"`
	CurrentPage   int   `json:"current_page"`
	LastPage      int   `json:"last_page"`
	TotalApiItems int   `json:"totalApiItems"`
	TotalApiPages int   `json:"totalApiPages"`
	ApiPage       int   `json:"apiPage"`
	ApiPageSize   int   `json:"apiPageSize"`
}

// AssistPage is the locally stored view returned after a synchronization.
type AssistPage struct {
	Records []model.AssistRecord `json:"data"`
	Meta    PageMeta             `json:"meta"`
}

// syncOutcome describes what one pass over the epoch did.
type syncOutcome struct {
	branch        Branch
	page          int
	status        *model.SyncStatus
	pagesFetched  int
	recordsStored int
}

type ServiceConfig struct {
	DefaultLimit  int
	CatchUpRounds int
}

// Service drives the attendance client, the page trackers and the record store.
// One synchronization runs at a time per Service.
type Service struct {
	client AttendanceClient
	store  *Store
	logger *zap.Logger
	config ServiceConfig

	lock     chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	now      func() time.Time
}

func NewService(client AttendanceClient, store *Store, logger *zap.Logger, config ServiceConfig) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = DefaultLimit
	}
	if config.CatchUpRounds <= 0 {
		config.CatchUpRounds = 20
	}
	return &Service{
		client: client,
		store:  store,
		logger: logger,
		config: config,
		lock:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		now:    time.Now,
	}
}

func (s *Service) Store() *Store {
	return s.store
}

func (s *Service) acquire(ctx context.Context) error {
	select {
	case s.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrLockUnavailable, ctx.Err())
	}
}

func (s *Service) release() {
	<-s.lock
}

func (s *Service) normalize(params SyncParams) (SyncParams, error) {
	if params.Page == 0 {
		params.Page = 1
	}
	if params.Limit == 0 {
		params.Limit = s.config.DefaultLimit
	}
	if params.Page < 1 || params.Limit < 1 {
		return params, fmt.Errorf("%w: page=%d limit=%d", ErrInvalidSyncParams, params.Page, params.Limit)
	}
	params.StartDate = params.StartDate.UTC()
	return params, nil
}

// Synchronize brings the epoch for params.StartDate up to date with the remote API
// and returns the stored records punched after StartDate, paginated by (Page, Limit).
//
// Without an epoch, or when StartDate is earlier than the current epoch's date, page 1
// is fetched and the epoch is (re)built. Otherwise the pending pages <= Page are fetched
// in order, or the last page is refreshed when nothing is pending.
func (s *Service) Synchronize(ctx context.Context, params SyncParams) (*AssistPage, error) {
	params, err := s.normalize(params)
	if err != nil {
		return nil, err
	}
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	outcome, err := s.synchronize(ctx, params)
	if err != nil {
		return nil, err
	}

	records, total, err := s.store.SearchAssists(ctx, params.StartDate, outcome.page, params.Limit)
	if err != nil {
		return nil, err
	}

	return &AssistPage{
		Records: records,
		Meta: PageMeta{
			Total:         total,
			PerPage:       params.Limit,
			CurrentPage:   outcome.page,
			LastPage:      lastPage(total, params.Limit),
			TotalApiItems: outcome.status.ItemsTotalSync,
			TotalApiPages: outcome.status.PageTotalSync,
			ApiPage:       outcome.page,
			ApiPageSize:   outcome.status.PageSizeSync,
		},
	}, nil
}

func lastPage(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 1
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// synchronize runs one pass; the caller holds the lock.
func (s *Service) synchronize(ctx context.Context, params SyncParams) (*syncOutcome, error) {
	startedAt := s.now()
	logger := s.logger.With(
		zap.String("run_id", uuid.NewString()),
		zap.Time("start_date", params.StartDate),
		zap.Int("page", params.Page),
		zap.Int("limit", params.Limit),
	)

	outcome, err := s.runBranch(ctx, params, logger)

	branch := string(BranchOpen)
	if outcome != nil {
		branch = string(outcome.branch)
	}
	metrics.SyncDuration.WithLabelValues(branch).Observe(s.now().Sub(startedAt).Seconds())
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues(branch, "error").Inc()
		logger.Error("Attendance synchronization failed", zap.String("branch", branch), zap.Error(err))
		return nil, err
	}
	metrics.SyncRunsTotal.WithLabelValues(branch, "success").Inc()

	if pending, err := s.store.CountPending(ctx, outcome.status); err == nil {
		metrics.PendingPages.Set(float64(pending))
	}

	logger.Info("Attendance synchronization finished",
		zap.String("branch", branch),
		zap.Uint("status_id", outcome.status.ID),
		zap.Int("pages_fetched", outcome.pagesFetched),
		zap.Int("records_stored", outcome.recordsStored),
		zap.Int("total_api_pages", outcome.status.PageTotalSync),
		zap.Int("total_api_items", outcome.status.ItemsTotalSync),
		zap.Duration("duration", s.now().Sub(startedAt)))
	return outcome, nil
}

func (s *Service) runBranch(ctx context.Context, params SyncParams, logger *zap.Logger) (*syncOutcome, error) {
	latest, err := s.store.LatestStatus(ctx)
	switch {
	case errors.Is(err, ErrNoEpoch):
		return s.openEpoch(ctx, params, logger)
	case err != nil:
		return nil, err
	case latest.DateRequestSync.After(params.StartDate):
		logger.Info("Requested date is earlier than the current epoch, resetting",
			zap.Uint("status_id", latest.ID),
			zap.Time("epoch_date", latest.DateRequestSync))
		return s.resetEpoch(ctx, latest, params, logger)
	default:
		return s.resumeEpoch(ctx, latest, params, logger)
	}
}

func (s *Service) openEpoch(ctx context.Context, params SyncParams, logger *zap.Logger) (*syncOutcome, error) {
	outcome := &syncOutcome{branch: BranchOpen, page: 1}

	result, err := s.fetch(ctx, params.StartDate, 1, params.Limit)
	if err != nil {
		return outcome, err
	}
	outcome.pagesFetched = 1

	totals := TotalsFrom(result.Pagination, params.Limit)
	records := s.convert(result.Data, logger)
	status, err := s.store.OpenEpoch(ctx, result.Pagination.RequestedDate(params.StartDate), totals, 1, records)
	if err != nil {
		return outcome, err
	}
	metrics.RecordsUpserted.Add(float64(len(records)))

	outcome.status = status
	outcome.recordsStored = len(records)
	return outcome, nil
}

func (s *Service) resetEpoch(ctx context.Context, status *model.SyncStatus, params SyncParams, logger *zap.Logger) (*syncOutcome, error) {
	outcome := &syncOutcome{branch: BranchReset, page: 1}

	result, err := s.fetch(ctx, params.StartDate, 1, params.Limit)
	if err != nil {
		return outcome, err
	}
	outcome.pagesFetched = 1

	totals := TotalsFrom(result.Pagination, params.Limit)
	records := s.convert(result.Data, logger)
	if err := s.store.ResetEpoch(ctx, status, result.Pagination.RequestedDate(params.StartDate), totals, 1, records); err != nil {
		return outcome, err
	}
	metrics.RecordsUpserted.Add(float64(len(records)))

	outcome.status = status
	outcome.recordsStored = len(records)
	return outcome, nil
}

// resumeEpoch fetches against the epoch's own date and page size, since page numbers
// only have a meaning relative to them.
func (s *Service) resumeEpoch(ctx context.Context, status *model.SyncStatus, params SyncParams, logger *zap.Logger) (*syncOutcome, error) {
	outcome := &syncOutcome{branch: BranchResume, page: params.Page, status: status}

	pages, err := s.store.PagesToSync(ctx, status, params.Page)
	if err != nil {
		return outcome, err
	}

	limit := status.PageSizeSync
	if limit <= 0 {
		limit = params.Limit
	}

	for _, pageNumber := range pages {
		result, err := s.fetch(ctx, status.DateRequestSync, pageNumber, limit)
		if err != nil {
			return outcome, err
		}
		outcome.pagesFetched++

		totals := TotalsFrom(result.Pagination, limit)
		records := s.convert(result.Data, logger)
		if err := s.store.CommitPage(ctx, status, pageNumber, len(result.Data), totals, records); err != nil {
			return outcome, err
		}
		metrics.RecordsUpserted.Add(float64(len(records)))
		outcome.recordsStored += len(records)

		logger.Debug("Page synchronized",
			zap.Int("page_number", pageNumber),
			zap.Int("items", len(result.Data)),
			zap.Int("total_pages", totals.TotalPages),
			zap.Int("total_items", totals.TotalItems))
	}
	return outcome, nil
}

func (s *Service) fetch(ctx context.Context, startDate time.Time, page, limit int) (*v1.TransactionPage, error) {
	result, err := s.client.FetchPage(ctx, startDate, page, limit)
	if err != nil {
		metrics.PagesFetched.WithLabelValues("error").Inc()
		return nil, &FetchError{Page: page, Err: err}
	}
	metrics.PagesFetched.WithLabelValues("success").Inc()
	return result, nil
}

func (s *Service) convert(transactions []v1.Transaction, logger *zap.Logger) []model.AssistRecord {
	records := make([]model.AssistRecord, 0, len(transactions))
	for _, tx := range transactions {
		record, err := ToAssistRecord(tx)
		if err != nil {
			metrics.RecordsSkipped.Inc()
			logger.Warn("Skipping malformed transaction", zap.String("external_id", tx.ID.String()), zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	return records
}
