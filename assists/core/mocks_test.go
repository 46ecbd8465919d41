package core

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	v1 "axiapac.com/biometrics/biometrics/v1"
	"axiapac.com/biometrics/utils"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fetchCall struct {
	StartDate time.Time
	Page      int
	Limit     int
}

// MockAttendanceClient is a mock implementation of AttendanceClient
type MockAttendanceClient struct {
	FetchPageFunc func(ctx context.Context, startDate time.Time, page, limit int) (*v1.TransactionPage, error)

	mu    sync.Mutex
	calls []fetchCall
}

func (m *MockAttendanceClient) FetchPage(ctx context.Context, startDate time.Time, page, limit int) (*v1.TransactionPage, error) {
	m.mu.Lock()
	m.calls = append(m.calls, fetchCall{StartDate: startDate, Page: page, Limit: limit})
	m.mu.Unlock()

	if m.FetchPageFunc != nil {
		return m.FetchPageFunc(ctx, startDate, page, limit)
	}
	return &v1.TransactionPage{}, nil
}

func (m *MockAttendanceClient) Calls() []fetchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]fetchCall(nil), m.calls...)
}

func (m *MockAttendanceClient) Pages() []int {
	return utils.Map(m.Calls(), func(c fetchCall) int { return c.Page })
}

func (m *MockAttendanceClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// fakeAPI serves punches at or after assistDate, paginated by limit, the way the
// remote transactions endpoint does.
type fakeAPI struct {
	mu           sync.Mutex
	transactions []v1.Transaction
	failPages    map[int]error
}

func newFakeAPI(transactions ...v1.Transaction) *fakeAPI {
	return &fakeAPI{transactions: transactions, failPages: map[int]error{}}
}

func (f *fakeAPI) Add(transactions ...v1.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactions = append(f.transactions, transactions...)
}

func (f *fakeAPI) FailPage(page int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failPages, page)
		return
	}
	f.failPages[page] = err
}

func (f *fakeAPI) FetchPage(_ context.Context, startDate time.Time, page, limit int) (*v1.TransactionPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.failPages[page]; ok {
		return nil, err
	}

	matching := utils.Filter(f.transactions, func(tx v1.Transaction) bool {
		punch, err := utils.ParseISOTime(tx.PunchTime)
		return err == nil && !punch.Before(startDate)
	})
	sort.SliceStable(matching, func(i, j int) bool { return matching[i].PunchTime < matching[j].PunchTime })

	totalItems := len(matching)
	totalPages := (totalItems + limit - 1) / limit
	from := min((page-1)*limit, totalItems)
	to := min(from+limit, totalItems)

	return &v1.TransactionPage{
		Data: append([]v1.Transaction(nil), matching[from:to]...),
		Pagination: v1.Pagination{
			Page:       page,
			PageSize:   limit,
			TotalItems: totalItems,
			TotalPages: totalPages,
			DateParam:  utils.FormatAPITime(startDate),
		},
	}, nil
}

func newTransaction(id string, punch time.Time) v1.Transaction {
	return v1.Transaction{
		ID:              v1.FlexString(id),
		EmpCode:         v1.FlexString("E-" + id),
		EmpID:           v1.FlexString(id),
		TerminalSN:      "CQZ7224460246",
		TerminalID:      "3",
		TerminalAlias:   "Gate A",
		AreaAlias:       "Yard",
		Longitude:       v1.NullFloat{Float64: 145.77, Valid: true},
		Latitude:        v1.NullFloat{Float64: -16.92, Valid: true},
		UploadTime:      punch.Add(time.Minute).UTC().Format(time.RFC3339),
		PunchTime:       punch.UTC().Format(time.RFC3339),
		PunchTimeLocal:  punch.In(time.FixedZone("AEST", 10*60*60)).Format("2006-01-02 15:04:05"),
		PunchTimeOrigin: punch.In(time.FixedZone("AEST", 10*60*60)).Format(time.RFC3339),
	}
}

// hourlyTransactions returns n punches one hour apart starting at start.
func hourlyTransactions(prefix string, start time.Time, n int) []v1.Transaction {
	out := make([]v1.Transaction, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, newTransaction(fmt.Sprintf("%s-%d", prefix, i+1), start.Add(time.Duration(i+1)*time.Hour)))
	}
	return out
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "assists.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return db
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(newTestDB(t))
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func newTestService(t *testing.T, client AttendanceClient) (*Service, *Store) {
	t.Helper()
	store := newTestStore(t)
	return NewService(client, store, zap.NewNop(), ServiceConfig{DefaultLimit: 50, CatchUpRounds: 10}), store
}
