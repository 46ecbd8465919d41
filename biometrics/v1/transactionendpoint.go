package v1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"axiapac.com/biometrics/utils"
)

var ErrInvalidPageRequest = errors.New("page must be >= 1 and limit must be > 0")

const transactionsPath = "/api/v1/transactions-async"

type TransactionEndpoint struct {
	transport *Transport
}

// FetchPage returns one page of punches recorded from startDate onward.
func (ep *TransactionEndpoint) FetchPage(ctx context.Context, startDate time.Time, page, limit int) (*TransactionPage, error) {
	if page < 1 || limit < 1 {
		return nil, fmt.Errorf("%w: page=%d limit=%d", ErrInvalidPageRequest, page, limit)
	}

	resp, err := ep.transport.Get(ctx, transactionsPath, map[string]string{
		"page":       strconv.Itoa(page),
		"limit":      strconv.Itoa(limit),
		"assistDate": utils.FormatAPITime(startDate),
	})
	if err != nil {
		return nil, err
	}

	var result TransactionPage
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode transactions page %d: %w", page, err)
	}
	if result.Pagination.Page == 0 {
		result.Pagination.Page = page
	}

	return &result, nil
}
