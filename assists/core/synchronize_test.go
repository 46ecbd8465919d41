package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"axiapac.com/biometrics/assists/model"
	v1 "axiapac.com/biometrics/biometrics/v1"
	"axiapac.com/biometrics/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func externalIDs(records []model.AssistRecord) []string {
	return utils.Map(records, func(r model.AssistRecord) string { return r.ExternalSyncID })
}

func trackerStatuses(t *testing.T, store *Store, statusID uint) map[int]string {
	t.Helper()
	trackers, err := store.Trackers(context.Background(), statusID)
	require.NoError(t, err)
	out := make(map[int]string, len(trackers))
	for _, tracker := range trackers {
		out[tracker.PageNumber] = tracker.PageStatus
	}
	return out
}

func TestSynchronizeFirstRun(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	transactions := hourlyTransactions("first", start, 3)

	client := &MockAttendanceClient{
		FetchPageFunc: func(ctx context.Context, startDate time.Time, page, limit int) (*v1.TransactionPage, error) {
			return &v1.TransactionPage{
				Data: transactions,
				Pagination: v1.Pagination{
					Page: 1, PageSize: 50, TotalItems: 3, TotalPages: 1,
					DateParam: utils.FormatAPITime(startDate),
				},
			}, nil
		},
	}
	service, store := newTestService(t, client)

	result, err := service.Synchronize(ctx, SyncParams{StartDate: start, Page: 1, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, []fetchCall{{StartDate: start, Page: 1, Limit: 10}}, client.Calls())

	assert.Equal(t, int64(1), countRows(t, store, &model.SyncStatus{}))
	status, err := store.LatestStatus(ctx)
	require.NoError(t, err)
	assert.True(t, start.Equal(status.DateRequestSync))
	assert.Equal(t, model.StatusInProcess, status.StatusSync)
	assert.Equal(t, 1, status.PageTotalSync)
	assert.Equal(t, 3, status.ItemsTotalSync)
	assert.Equal(t, 50, status.PageSizeSync)

	trackers, err := store.Trackers(ctx, status.ID)
	require.NoError(t, err)
	require.Len(t, trackers, 1)
	assert.Equal(t, 1, trackers[0].PageNumber)
	assert.Equal(t, model.PageStatusSync, trackers[0].PageStatus)
	assert.Equal(t, 3, trackers[0].ItemsCount)

	assert.Equal(t, int64(3), countRows(t, store, &model.AssistRecord{}))
	assert.Equal(t, []string{"first-1", "first-2", "first-3"}, externalIDs(result.Records))
	assert.Equal(t, PageMeta{
		Total:         3,
		PerPage:       10,
		CurrentPage:   1,
		LastPage:      1,
		TotalApiItems: 3,
		TotalApiPages: 1,
		ApiPage:       1,
		ApiPageSize:   50,
	}, result.Meta)
}

func TestSynchronizeForcesFirstPageWithoutEpoch(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	client := &MockAttendanceClient{FetchPageFunc: newFakeAPI(hourlyTransactions("a", start, 5)...).FetchPage}
	service, _ := newTestService(t, client)

	result, err := service.Synchronize(context.Background(), SyncParams{StartDate: start, Page: 3, Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, []int{1}, client.Pages())
	assert.Equal(t, 1, result.Meta.ApiPage)
	assert.Equal(t, 1, result.Meta.CurrentPage)
}

func TestSynchronizeResumesPendingPages(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	client := &MockAttendanceClient{FetchPageFunc: newFakeAPI(hourlyTransactions("a", start, 5)...).FetchPage}
	service, store := newTestService(t, client)

	_, err := service.Synchronize(ctx, SyncParams{StartDate: start, Page: 1, Limit: 2})
	require.NoError(t, err)

	status, err := store.LatestStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: model.PageStatusSync, 2: model.PageStatusPending, 3: model.PageStatusPending},
		trackerStatuses(t, store, status.ID))

	client.Reset()
	result, err := service.Synchronize(ctx, SyncParams{StartDate: start, Page: 3, Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3}, client.Pages())
	assert.Equal(t, map[int]string{1: model.PageStatusSync, 2: model.PageStatusSync, 3: model.PageStatusSync},
		trackerStatuses(t, store, status.ID))
	assert.Equal(t, int64(5), countRows(t, store, &model.AssistRecord{}))

	assert.Equal(t, []string{"a-5"}, externalIDs(result.Records))
	assert.Equal(t, PageMeta{
		Total:         5,
		PerPage:       2,
		CurrentPage:   3,
		LastPage:      3,
		TotalApiItems: 5,
		TotalApiPages: 3,
		ApiPage:       3,
		ApiPageSize:   2,
	}, result.Meta)
}

func TestSynchronizeRefreshesLastPage(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	client := &MockAttendanceClient{FetchPageFunc: newFakeAPI(hourlyTransactions("a", start, 5)...).FetchPage}
	service, _ := newTestService(t, client)

	_, err := service.Synchronize(ctx, SyncParams{StartDate: start, Page: 1, Limit: 2})
	require.NoError(t, err)
	_, err = service.Synchronize(ctx, SyncParams{StartDate: start, Page: 3, Limit: 2})
	require.NoError(t, err)

	client.Reset()
	_, err = service.Synchronize(ctx, SyncParams{StartDate: start, Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{3}, client.Pages())

	client.Reset()
	_, err = service.Synchronize(ctx, SyncParams{StartDate: start, Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, client.Pages(), "a synced page other than the last is not refetched")
}

func TestSynchronizeResetsOnEarlierDate(t *testing.T) {
	ctx := context.Background()
	epochDate := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	api := newFakeAPI(hourlyTransactions("early", earlier, 3)...)
	api.Add(hourlyTransactions("late", epochDate, 3)...)
	client := &MockAttendanceClient{FetchPageFunc: api.FetchPage}
	service, store := newTestService(t, client)

	_, err := service.Synchronize(ctx, SyncParams{StartDate: epochDate, Page: 1, Limit: 2})
	require.NoError(t, err)
	original, err := store.LatestStatus(ctx)
	require.NoError(t, err)
	oldTrackers, err := store.Trackers(ctx, original.ID)
	require.NoError(t, err)
	require.Len(t, oldTrackers, 2)

	client.Reset()
	result, err := service.Synchronize(ctx, SyncParams{StartDate: earlier, Page: 2, Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, []fetchCall{{StartDate: earlier, Page: 1, Limit: 2}}, client.Calls())
	assert.Equal(t, int64(1), countRows(t, store, &model.SyncStatus{}))

	reset, err := store.LatestStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, original.ID, reset.ID)
	assert.True(t, earlier.Equal(reset.DateRequestSync))
	assert.Equal(t, 3, reset.PageTotalSync)
	assert.Equal(t, 6, reset.ItemsTotalSync)

	newTrackers, err := store.Trackers(ctx, reset.ID)
	require.NoError(t, err)
	require.Len(t, newTrackers, 3)
	for _, tracker := range newTrackers {
		for _, old := range oldTrackers {
			assert.NotEqual(t, old.ID, tracker.ID, "trackers must be recreated, not reused")
		}
	}
	assert.Equal(t, map[int]string{1: model.PageStatusSync, 2: model.PageStatusPending, 3: model.PageStatusPending},
		trackerStatuses(t, store, reset.ID))
	assert.Equal(t, 1, result.Meta.ApiPage)
}

func TestSynchronizeKeepsEpochForSameOrLaterDate(t *testing.T) {
	ctx := context.Background()
	epochDate := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	client := &MockAttendanceClient{FetchPageFunc: newFakeAPI(hourlyTransactions("a", epochDate, 4)...).FetchPage}
	service, store := newTestService(t, client)

	_, err := service.Synchronize(ctx, SyncParams{StartDate: epochDate, Page: 1, Limit: 2})
	require.NoError(t, err)
	original, err := store.LatestStatus(ctx)
	require.NoError(t, err)

	tests := []struct {
		name      string
		startDate time.Time
	}{
		{"equal date", epochDate},
		{"later date", epochDate.Add(2 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client.Reset()
			_, err := service.Synchronize(ctx, SyncParams{StartDate: tt.startDate, Page: 2, Limit: 10})
			require.NoError(t, err)

			status, err := store.LatestStatus(ctx)
			require.NoError(t, err)
			assert.Equal(t, original.ID, status.ID)
			assert.True(t, epochDate.Equal(status.DateRequestSync))
			for _, call := range client.Calls() {
				assert.True(t, epochDate.Equal(call.StartDate), "resume fetches stay anchored to the epoch date")
				assert.Equal(t, 2, call.Limit, "resume fetches use the epoch page size")
			}
		})
	}
}

func TestSynchronizeExcludesBoundaryFromView(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	api := newFakeAPI(newTransaction("boundary", start))
	api.Add(hourlyTransactions("after", start, 2)...)
	service, store := newTestService(t, &MockAttendanceClient{FetchPageFunc: api.FetchPage})

	result, err := service.Synchronize(ctx, SyncParams{StartDate: start, Page: 1, Limit: 10})
	require.NoError(t, err)

	stored, err := store.FindAssist(ctx, "boundary")
	require.NoError(t, err)
	assert.True(t, start.Equal(stored.PunchTime))

	assert.Equal(t, []string{"after-1", "after-2"}, externalIDs(result.Records))
	assert.Equal(t, int64(2), result.Meta.Total)
	assert.Equal(t, 3, result.Meta.TotalApiItems)
}

func TestSynchronizePartialFailureIsResumable(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	api := newFakeAPI(hourlyTransactions("a", start, 5)...)
	client := &MockAttendanceClient{FetchPageFunc: api.FetchPage}
	service, store := newTestService(t, client)

	_, err := service.Synchronize(ctx, SyncParams{StartDate: start, Page: 1, Limit: 2})
	require.NoError(t, err)
	status, err := store.LatestStatus(ctx)
	require.NoError(t, err)

	api.FailPage(3, errors.New("upstream unavailable"))
	_, err = service.Synchronize(ctx, SyncParams{StartDate: start, Page: 3, Limit: 2})
	require.Error(t, err)
	assert.ErrorContains(t, err, "upstream unavailable")
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 3, fetchErr.Page)
	assert.Equal(t, map[int]string{1: model.PageStatusSync, 2: model.PageStatusSync, 3: model.PageStatusPending},
		trackerStatuses(t, store, status.ID))
	assert.Equal(t, int64(4), countRows(t, store, &model.AssistRecord{}))

	api.FailPage(3, nil)
	client.Reset()
	_, err = service.Synchronize(ctx, SyncParams{StartDate: start, Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{3}, client.Pages())
	assert.Equal(t, map[int]string{1: model.PageStatusSync, 2: model.PageStatusSync, 3: model.PageStatusSync},
		trackerStatuses(t, store, status.ID))
}

func TestSynchronizeFailureWithoutEpochLeavesNoState(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	api.FailPage(1, errors.New("connection refused"))
	service, store := newTestService(t, &MockAttendanceClient{FetchPageFunc: api.FetchPage})

	_, err := service.Synchronize(ctx, SyncParams{StartDate: time.Now(), Page: 1, Limit: 2})
	require.Error(t, err)

	_, err = store.LatestStatus(ctx)
	assert.ErrorIs(t, err, ErrNoEpoch)
}

func TestSynchronizeRevalidatesWhenRemoteGrows(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	api := newFakeAPI(hourlyTransactions("a", start, 4)...)
	client := &MockAttendanceClient{FetchPageFunc: api.FetchPage}
	service, store := newTestService(t, client)

	_, err := service.Synchronize(ctx, SyncParams{StartDate: start, Page: 1, Limit: 2})
	require.NoError(t, err)
	_, err = service.Synchronize(ctx, SyncParams{StartDate: start, Page: 2, Limit: 2})
	require.NoError(t, err)

	api.Add(newTransaction("late", start.Add(10*time.Hour)))

	client.Reset()
	result, err := service.Synchronize(ctx, SyncParams{StartDate: start, Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, client.Pages())
	assert.Equal(t, 3, result.Meta.TotalApiPages)
	assert.Equal(t, 5, result.Meta.TotalApiItems)

	status, err := store.LatestStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: model.PageStatusSync, 2: model.PageStatusSync, 3: model.PageStatusPending},
		trackerStatuses(t, store, status.ID))

	client.Reset()
	_, err = service.Synchronize(ctx, SyncParams{StartDate: start, Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{3}, client.Pages())
	_, err = store.FindAssist(ctx, "late")
	assert.NoError(t, err)
}

func TestSynchronizeInvalidParams(t *testing.T) {
	service, _ := newTestService(t, &MockAttendanceClient{})

	tests := []struct {
		name   string
		params SyncParams
	}{
		{"negative page", SyncParams{StartDate: time.Now(), Page: -1, Limit: 10}},
		{"negative limit", SyncParams{StartDate: time.Now(), Page: 1, Limit: -10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Synchronize(context.Background(), tt.params)
			assert.ErrorIs(t, err, ErrInvalidSyncParams)
		})
	}
}

func TestSynchronizeAppliesDefaults(t *testing.T) {
	client := &MockAttendanceClient{}
	service, _ := newTestService(t, client)

	result, err := service.Synchronize(context.Background(), SyncParams{StartDate: time.Now()})
	require.NoError(t, err)

	assert.Equal(t, []int{1}, client.Pages())
	assert.Equal(t, 50, client.Calls()[0].Limit)
	assert.Equal(t, 50, result.Meta.PerPage)
	assert.Equal(t, 1, result.Meta.LastPage)
	assert.Empty(t, result.Records)
}

func TestSynchronizeSerializesCallers(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	api := newFakeAPI(hourlyTransactions("a", start, 2)...)

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	client := &MockAttendanceClient{
		FetchPageFunc: func(ctx context.Context, startDate time.Time, page, limit int) (*v1.TransactionPage, error) {
			select {
			case entered <- struct{}{}:
			default:
			}
			<-release
			return api.FetchPage(ctx, startDate, page, limit)
		},
	}
	service, store := newTestService(t, client)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = service.Synchronize(context.Background(), SyncParams{StartDate: start, Page: 1, Limit: 10})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := service.Synchronize(ctx, SyncParams{StartDate: start, Page: 1, Limit: 10})
	assert.ErrorIs(t, err, ErrLockUnavailable)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)

	assert.Len(t, client.Calls(), 1)
	assert.Equal(t, int64(1), countRows(t, store, &model.SyncStatus{}))
}

func TestCatchUp(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	api := newFakeAPI(hourlyTransactions("a", start, 5)...)
	client := &MockAttendanceClient{FetchPageFunc: api.FetchPage}
	service, store := newTestService(t, client)

	stats, err := service.CatchUp(ctx, start, 2)
	require.NoError(t, err)

	assert.Equal(t, BranchOpen, stats.Branch)
	assert.Equal(t, 2, stats.Rounds)
	assert.Equal(t, 3, stats.PagesFetched)
	assert.Equal(t, 5, stats.RecordsStored)
	assert.Equal(t, int64(0), stats.PendingPages)
	assert.Equal(t, []int{1, 2, 3}, client.Pages())
	assert.Equal(t, int64(5), countRows(t, store, &model.AssistRecord{}))

	client.Reset()
	api.Add(newTransaction("late", start.Add(24*time.Hour)))
	stats, err = service.CatchUp(ctx, start, 2)
	require.NoError(t, err)

	assert.Equal(t, BranchResume, stats.Branch)
	assert.Equal(t, []int{3}, client.Pages())
	assert.Equal(t, 1, stats.Rounds)
	assert.Equal(t, 6, stats.TotalApiItems)
	assert.Equal(t, int64(0), stats.PendingPages)
}

func TestCatchUpIsBounded(t *testing.T) {
	client := &MockAttendanceClient{
		FetchPageFunc: func(ctx context.Context, startDate time.Time, page, limit int) (*v1.TransactionPage, error) {
			// totals promise more items than any page ever delivers
			return &v1.TransactionPage{Pagination: v1.Pagination{Page: page, PageSize: 2, TotalItems: 4, TotalPages: 2}}, nil
		},
	}
	store := newTestStore(t)
	service := NewService(client, store, nil, ServiceConfig{CatchUpRounds: 3})

	stats, err := service.CatchUp(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Rounds)
	assert.Positive(t, stats.PendingPages)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	service, _ := newTestService(t, &MockAttendanceClient{FetchPageFunc: newFakeAPI(hourlyTransactions("a", start, 5)...).FetchPage})

	_, err := service.Status(ctx)
	assert.ErrorIs(t, err, ErrNoEpoch)

	_, err = service.Synchronize(ctx, SyncParams{StartDate: start, Page: 1, Limit: 2})
	require.NoError(t, err)

	status, err := service.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.SyncedPages)
	assert.Equal(t, 2, status.PendingPages)
	assert.Len(t, status.Trackers, 3)
	assert.Equal(t, 3, status.Status.PageTotalSync)
}

func TestStartPeriodicSync(t *testing.T) {
	start := utils.StartOfDayUTC(time.Now()).AddDate(0, 0, -1)
	client := &MockAttendanceClient{FetchPageFunc: newFakeAPI(hourlyTransactions("a", start, 3)...).FetchPage}
	service, store := newTestService(t, client)

	service.StartPeriodicSync(10*time.Millisecond, 1)
	assert.Eventually(t, func() bool {
		return countRows(t, store, &model.AssistRecord{}) == 3
	}, 2*time.Second, 10*time.Millisecond)
	service.Stop()
	service.Stop()

	calls := client.Calls()
	require.NotEmpty(t, calls)
	assert.True(t, start.Equal(calls[0].StartDate))
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	service, _ := newTestService(t, &MockAttendanceClient{FetchPageFunc: newFakeAPI(hourlyTransactions("a", start, 3)...).FetchPage})

	_, err := service.Synchronize(ctx, SyncParams{StartDate: start, Page: 1, Limit: 10})
	require.NoError(t, err)

	var buf bytes.Buffer
	count, err := service.Export(ctx, start, start.Add(2*time.Hour), &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "External ID", rows[0][0])
	assert.Equal(t, "a-1", rows[1][0])
	assert.Equal(t, "2024-01-01T01:00:00Z", rows[1][10])
	assert.Equal(t, "a-2", rows[2][0])
}

type memoryFiles map[string][]byte

func (m memoryFiles) WriteFile(_ context.Context, key string, body io.Reader, _ string) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m[key] = b
	return nil
}

func TestArchiveExport(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	service, _ := newTestService(t, &MockAttendanceClient{FetchPageFunc: newFakeAPI(hourlyTransactions("a", start, 3)...).FetchPage})

	_, err := service.Synchronize(ctx, SyncParams{StartDate: start, Page: 1, Limit: 10})
	require.NoError(t, err)

	files := memoryFiles{}
	end := start.Add(24 * time.Hour)
	key, count, err := service.ArchiveExport(ctx, files, "exports", start, end)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, "exports/2024-01-02/assists_20240101T000000Z_20240102T000000Z.xlsx", key)

	f, err := excelize.OpenReader(bytes.NewReader(files[key]))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}
