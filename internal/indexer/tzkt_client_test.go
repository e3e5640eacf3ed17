package indexer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tezos-reporter/internal/config"
	"github.com/tezos-reporter/internal/errors"
	"github.com/tezos-reporter/internal/types"
)

const (
	testAddress  = "tz1cY5tTfFb5c4Q9VyJ895y6eLk1ohXXqwVD"
	counterparty = "tz1bu1WeCaPdKSbdAVcBkcUdnksTYa6uGWWF"
)

func testWindow() types.ReportWindow {
	return types.ReportWindow{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func testClient(baseURL string, pageSize int) *Client {
	return NewClient(&config.IndexerConfig{
		BaseURL:           baseURL,
		RequestsPerSecond: 10000,
		PageSize:          pageSize,
		MaxRetries:        3,
		InitialRetryDelay: time.Millisecond,
		MaxRetryDelay:     5 * time.Millisecond,
		RequestTimeout:    5 * time.Second,
	})
}

func makeTx(id int64, hash string, ts time.Time, sender, target string, amount int64) tzktTransaction {
	return tzktTransaction{
		ID:        id,
		Hash:      hash,
		Timestamp: ts,
		Amount:    amount,
		Sender:    tzktAccount{Address: sender},
		Target:    tzktAccount{Address: target},
		Status:    "applied",
	}
}

func TestFetchTransactionsMergesRoles(t *testing.T) {
	window := testWindow()
	ts := window.Start.Add(6 * time.Hour)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var page []tzktTransaction
		switch {
		case q.Get("sender") == testAddress:
			page = []tzktTransaction{
				makeTx(2, "opSend", ts.Add(time.Hour), testAddress, counterparty, 4_000_000),
			}
		case q.Get("target") == testAddress:
			page = []tzktTransaction{
				makeTx(1, "opRecv", ts, counterparty, testAddress, 10_000_000),
			}
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	client := testClient(server.URL, 1000)
	txs, err := client.FetchTransactions(context.Background(), testAddress, window)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	// Sorted by (timestamp, id) regardless of which role query returned first
	assert.Equal(t, "opRecv", txs[0].Hash)
	assert.Equal(t, "opSend", txs[1].Hash)
	assert.Equal(t, int64(10_000_000), txs[0].Amount)
}

func TestFetchTransactionsDeduplicatesSelfTransfer(t *testing.T) {
	window := testWindow()
	ts := window.Start.Add(time.Hour)
	self := makeTx(7, "opSelf", ts, testAddress, testAddress, 1_000_000)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Both role queries return the same operation
		json.NewEncoder(w).Encode([]tzktTransaction{self})
	}))
	defer server.Close()

	client := testClient(server.URL, 1000)
	txs, err := client.FetchTransactions(context.Background(), testAddress, window)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "opSelf", txs[0].Hash)
}

func TestFetchTransactionsPagination(t *testing.T) {
	window := testWindow()
	base := window.Start.Add(time.Hour)

	var targetCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("sender") == testAddress {
			json.NewEncoder(w).Encode([]tzktTransaction{})
			return
		}

		call := atomic.AddInt32(&targetCalls, 1)
		cursor, _ := strconv.ParseInt(q.Get("id.gt"), 10, 64)
		switch call {
		case 1:
			assert.Zero(t, cursor)
			json.NewEncoder(w).Encode([]tzktTransaction{
				makeTx(1, "op1", base, counterparty, testAddress, 1),
				makeTx(2, "op2", base.Add(time.Minute), counterparty, testAddress, 2),
			})
		case 2:
			assert.Equal(t, int64(2), cursor)
			json.NewEncoder(w).Encode([]tzktTransaction{
				makeTx(3, "op3", base.Add(2*time.Minute), counterparty, testAddress, 3),
			})
		default:
			t.Errorf("unexpected extra page request %d", call)
		}
	}))
	defer server.Close()

	// Page size 2: full first page forces a second request, short second
	// page terminates the loop
	client := testClient(server.URL, 2)
	txs, err := client.FetchTransactions(context.Background(), testAddress, window)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&targetCalls))
	assert.Equal(t, "op3", txs[2].Hash)
}

func TestFetchTransactionsWindowBoundaries(t *testing.T) {
	window := testWindow()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sender") == testAddress {
			json.NewEncoder(w).Encode([]tzktTransaction{})
			return
		}
		json.NewEncoder(w).Encode([]tzktTransaction{
			makeTx(1, "beforeStart", window.Start.Add(-time.Second), counterparty, testAddress, 1),
			makeTx(2, "atStart", window.Start, counterparty, testAddress, 2),
			makeTx(3, "atEnd", window.End, counterparty, testAddress, 3),
			makeTx(4, "notApplied", window.Start.Add(time.Hour), counterparty, testAddress, 4),
		})
	}))
	defer server.Close()

	// The server ignores the window parameters here, the client filters locally
	client := testClient(server.URL, 1000)
	txs, err := client.FetchTransactions(context.Background(), testAddress, window)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "atStart", txs[0].Hash)
	assert.Equal(t, "notApplied", txs[1].Hash)
}

func TestFetchTransactionsFiltersNonApplied(t *testing.T) {
	window := testWindow()
	ts := window.Start.Add(time.Hour)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sender") == testAddress {
			json.NewEncoder(w).Encode([]tzktTransaction{})
			return
		}
		failed := makeTx(2, "opFailed", ts, counterparty, testAddress, 2)
		failed.Status = "failed"
		json.NewEncoder(w).Encode([]tzktTransaction{
			makeTx(1, "opApplied", ts, counterparty, testAddress, 1),
			failed,
		})
	}))
	defer server.Close()

	client := testClient(server.URL, 1000)
	txs, err := client.FetchTransactions(context.Background(), testAddress, window)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "opApplied", txs[0].Hash)
}

func TestFetchTransactionsRetriesServerError(t *testing.T) {
	window := testWindow()
	ts := window.Start.Add(time.Hour)

	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sender") == testAddress {
			json.NewEncoder(w).Encode([]tzktTransaction{})
			return
		}
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]tzktTransaction{
			makeTx(1, "op1", ts, counterparty, testAddress, 1),
		})
	}))
	defer server.Close()

	client := testClient(server.URL, 1000)
	txs, err := client.FetchTransactions(context.Background(), testAddress, window)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestFetchTransactionsExhaustsRetries(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := testClient(server.URL, 1000)
	_, err := client.FetchTransactions(context.Background(), testAddress, testWindow())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeFetchFailed))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))

	categorized := errors.Categorize(err)
	assert.Equal(t, http.StatusServiceUnavailable, categorized.Details["upstreamStatus"])
	assert.Equal(t, testAddress, categorized.Details["address"])
}

func TestFetchTransactionsClientErrorIsPermanent(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := testClient(server.URL, 1000)
	_, err := client.FetchTransactions(context.Background(), testAddress, testWindow())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeFetchFailed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}
