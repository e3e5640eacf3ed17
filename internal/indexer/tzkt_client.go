// Package indexer implements the TzKT API client used to fetch transfer
// operations for reported addresses.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/tezos-reporter/internal/config"
	"github.com/tezos-reporter/internal/errors"
	"github.com/tezos-reporter/internal/logging"
	"github.com/tezos-reporter/internal/retry"
	"github.com/tezos-reporter/internal/types"
)

// Client fetches applied transfer operations from the TzKT indexer.
// All requests share one rate limiter sized to the TzKT free tier.
type Client struct {
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	pageSize int
	retryCfg *retry.Config
}

// NewClient creates a new TzKT API client
func NewClient(cfg *config.IndexerConfig) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		client:   &http.Client{Timeout: cfg.RequestTimeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		pageSize: cfg.PageSize,
		retryCfg: &retry.Config{
			MaxAttempts:  cfg.MaxRetries,
			InitialDelay: cfg.InitialRetryDelay,
			MaxDelay:     cfg.MaxRetryDelay,
			Multiplier:   2.0,
		},
	}
}

// tzktAccount is the sender/target object in a TzKT operation record
type tzktAccount struct {
	Address string `json:"address"`
}

// tzktTransaction is one record from /v1/operations/transactions
type tzktTransaction struct {
	ID        int64       `json:"id"`
	Hash      string      `json:"hash"`
	Timestamp time.Time   `json:"timestamp"`
	Amount    int64       `json:"amount"`
	Sender    tzktAccount `json:"sender"`
	Target    tzktAccount `json:"target"`
	Status    string      `json:"status"`
}

// statusError carries an upstream HTTP status through the retry loop
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected upstream status %d", e.code)
}

// FetchTransactions returns every applied transfer where the address is
// sender or target inside the half-open window, ordered by (timestamp, id)
// ascending. Sender-role and target-role queries are merged by operation id
// so a self-transfer appears once in the raw sequence.
func (c *Client) FetchTransactions(ctx context.Context, address string, window types.ReportWindow) ([]types.RawTransaction, error) {
	logger := logging.FromContext(ctx).WithField("address", address)

	senderTxs, err := c.fetchRole(ctx, address, "sender", window)
	if err != nil {
		return nil, err
	}
	targetTxs, err := c.fetchRole(ctx, address, "target", window)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(senderTxs)+len(targetTxs))
	merged := make([]types.RawTransaction, 0, len(senderTxs)+len(targetTxs))
	for _, tx := range append(senderTxs, targetTxs...) {
		if seen[tx.ID] {
			continue
		}
		seen[tx.ID] = true
		merged = append(merged, tx)
	}

	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].Timestamp.Equal(merged[j].Timestamp) {
			return merged[i].Timestamp.Before(merged[j].Timestamp)
		}
		return merged[i].ID < merged[j].ID
	})

	logger.WithFields(map[string]interface{}{
		"sent":     len(senderTxs),
		"received": len(targetTxs),
		"total":    len(merged),
	}).Debug("Fetched transactions")

	return merged, nil
}

// fetchRole pages through one role query until an empty or short page
func (c *Client) fetchRole(ctx context.Context, address, role string, window types.ReportWindow) ([]types.RawTransaction, error) {
	var result []types.RawTransaction
	var cursor int64

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		page, err := c.fetchPage(ctx, address, role, window, cursor)
		if err != nil {
			return nil, err
		}

		for _, tx := range page {
			// The API parameters already request the window and applied
			// status; filter again so upstream slack cannot leak records.
			if tx.Status != "" && tx.Status != "applied" {
				continue
			}
			ts := tx.Timestamp.UTC()
			if !window.Contains(ts) {
				continue
			}
			result = append(result, types.RawTransaction{
				ID:        tx.ID,
				Hash:      tx.Hash,
				Timestamp: ts,
				Sender:    tx.Sender.Address,
				Target:    tx.Target.Address,
				Amount:    tx.Amount,
			})
		}

		if len(page) < c.pageSize {
			return result, nil
		}
		cursor = page[len(page)-1].ID
	}
}

// fetchPage fetches a single page with bounded retries. Network errors, 429
// and 5xx are transient; other statuses fail immediately. Exhaustion is
// reported as a fetch error carrying the address and last upstream status.
func (c *Client) fetchPage(ctx context.Context, address, role string, window types.ReportWindow, cursor int64) ([]tzktTransaction, error) {
	query := url.Values{}
	query.Set(role, address)
	query.Set("timestamp.ge", window.Start.UTC().Format(time.RFC3339))
	query.Set("timestamp.lt", window.End.UTC().Format(time.RFC3339))
	query.Set("status", "applied")
	query.Set("limit", strconv.Itoa(c.pageSize))
	query.Set("sort.asc", "id")
	if cursor > 0 {
		query.Set("id.gt", strconv.FormatInt(cursor, 10))
	}
	requestURL := fmt.Sprintf("%s/operations/transactions?%s", c.baseURL, query.Encode())

	var page []tzktTransaction
	lastStatus := 0

	err := retry.WithExponentialBackoff(ctx, c.retryCfg, func(ctx context.Context, attempt int) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return true, err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return false, fmt.Errorf("request failed: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return false, fmt.Errorf("failed to read response: %w", err)
		}
		lastStatus = resp.StatusCode

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.Unmarshal(body, &page); err != nil {
				return true, fmt.Errorf("failed to parse response: %w", err)
			}
			return false, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			// Honor Retry-After before the backoff kicks in
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				if seconds, err := strconv.Atoi(retryAfter); err == nil {
					delay := time.Duration(seconds) * time.Second
					if delay > c.retryCfg.MaxDelay {
						delay = c.retryCfg.MaxDelay
					}
					select {
					case <-time.After(delay):
					case <-ctx.Done():
						return true, ctx.Err()
					}
				}
			}
			return false, &statusError{code: resp.StatusCode}
		case resp.StatusCode >= 500:
			return false, &statusError{code: resp.StatusCode}
		default:
			return true, &statusError{code: resp.StatusCode}
		}
	})
	if err != nil {
		return nil, errors.NewFetchError(address, lastStatus, err)
	}

	return page, nil
}
