package heyreach

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("test-key",
		WithBaseURL(srv.URL),
		WithBackoffBase(time.Millisecond),
	)
}

func TestGetOverallStatsSendsAPIKey(t *testing.T) {
	var gotKey string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		fmt.Fprint(w, `{"overallStats":{"connectionsSent":176,"connectionsAccepted":49}}`)
	}))

	stats, err := c.GetOverallStats(context.Background(), GetOverallStatsInput{
		AccountIDs: []int64{101},
		StartDate:  time.Date(2025, time.November, 15, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, time.November, 21, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, 176, stats.ConnectionsSent)
	assert.Equal(t, 49, stats.ConnectionsAccepted)
}

func TestGetOverallStatsSumsByDayStats(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"byDayStats":{
			"2025-11-20":{"connectionsSent":100,"messageReplies":6},
			"2025-11-21":{"connectionsSent":76,"messageReplies":10}
		}}`)
	}))

	stats, err := c.GetOverallStats(context.Background(), GetOverallStatsInput{})
	require.NoError(t, err)

	assert.Equal(t, 176, stats.ConnectionsSent)
	assert.Equal(t, 16, stats.MessageReplies)
}

func TestGetOverallStatsFieldAliases(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"overallStats":{
			"connectionRequestsSent":42,
			"InvitesAccepted":7,
			"messageStartersSent":12,
			"leadsInterested":-3
		}}`)
	}))

	stats, err := c.GetOverallStats(context.Background(), GetOverallStatsInput{})
	require.NoError(t, err)

	assert.Equal(t, 42, stats.ConnectionsSent)
	assert.Equal(t, 7, stats.ConnectionsAccepted)
	assert.Equal(t, 12, stats.MessagesSent)
	// Negative upstream values clamp to zero
	assert.Equal(t, 0, stats.Interested)
}

func TestRetryGivesUpAfterThreeAttempts(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := c.GetOverallStats(context.Background(), GetOverallStatsInput{})
	require.Error(t, err)

	assert.Equal(t, int32(3), calls.Load())
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"overallStats":{"connectionsSent":5}}`)
	}))

	stats, err := c.GetOverallStats(context.Background(), GetOverallStatsInput{})
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 5, stats.ConnectionsSent)
}

func TestRetrySurvivesTinyBackoffBase(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	// A sub-2ns base leaves no room for jitter; the retry loop must not
	// panic on an empty jitter interval
	c := New("test-key", WithBaseURL(srv.URL), WithBackoffBase(time.Nanosecond))

	_, err := c.GetOverallStats(context.Background(), GetOverallStatsInput{})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPingIsSingleRequest(t *testing.T) {
	var calls atomic.Int32
	var gotPath string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"items":[]}`)
	}))

	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, "/api/public/li_account/GetAll", gotPath)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPingDoesNotRetryFailures(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.GetOverallStats(context.Background(), GetOverallStatsInput{})
	require.Error(t, err)

	assert.Equal(t, int32(1), calls.Load())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.False(t, apiErr.Transient())
}

func TestGetLinkedInAccountsPaginates(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Offset int `json:"offset"`
			Limit  int `json:"limit"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		accounts := make([]LinkedInAccount, 0, req.Limit)
		if req.Offset == 0 {
			for i := 0; i < req.Limit; i++ {
				accounts = append(accounts, LinkedInAccount{ID: int64(i + 1)})
			}
		} else if req.Offset == req.Limit {
			accounts = append(accounts, LinkedInAccount{ID: 9000, FirstName: "Corinne", LastName: "Kazoleas"})
		}
		json.NewEncoder(w).Encode(map[string]any{"items": accounts})
	}))

	accounts, err := c.GetLinkedInAccounts(context.Background())
	require.NoError(t, err)

	require.Len(t, accounts, accountPageLimit+1)
	assert.Equal(t, "Corinne Kazoleas", accounts[accountPageLimit].FullName())
}

func TestGetLinkedInAccountsDataEnvelope(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":101,"firstName":"Corinne","lastName":"Kazoleas"}]}`)
	}))

	accounts, err := c.GetLinkedInAccounts(context.Background())
	require.NoError(t, err)

	require.Len(t, accounts, 1)
	assert.Equal(t, int64(101), accounts[0].ID)
}
