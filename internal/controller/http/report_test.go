package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniel/reach-sync/internal/domain/report/entity"
	"github.com/daniel/reach-sync/internal/domain/report/policy"
)

type fakeReportService struct {
	run     *policy.RunResult
	runErr  error
	records []entity.MetricRecord
	senders []entity.Sender

	gotStart, gotEnd time.Time
}

func (f *fakeReportService) Run(_ context.Context, start, end time.Time) (*policy.RunResult, error) {
	f.gotStart, f.gotEnd = start, end
	return f.run, f.runErr
}

func (f *fakeReportService) Summary(_ context.Context, start, end time.Time) ([]entity.MetricRecord, error) {
	f.gotStart, f.gotEnd = start, end
	return f.records, nil
}

func (f *fakeReportService) ListSenders(context.Context) ([]entity.Sender, error) {
	return f.senders, nil
}

func testRouter(svc ReportService) *chi.Mux {
	r := chi.NewRouter()
	NewReportHandler(svc, nil).RegisterRoutes(r)
	return r
}

func TestSyncWithExplicitWindow(t *testing.T) {
	svc := &fakeReportService{run: &policy.RunResult{State: policy.StateDone}}
	r := testRouter(svc)

	body := `{"startDate":"2025-11-01","endDate":"2025-11-21"}`
	req := httptest.NewRequest(http.MethodPost, "/reports/sync", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC), svc.gotStart)
	assert.Equal(t, time.Date(2025, time.November, 21, 0, 0, 0, 0, time.UTC), svc.gotEnd)

	var got policy.RunResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, policy.StateDone, got.State)
}

func TestSyncDefaultsToTrailingWindow(t *testing.T) {
	svc := &fakeReportService{run: &policy.RunResult{State: policy.StateDone}}
	r := testRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/reports/sync", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	window := svc.gotEnd.Sub(svc.gotStart)
	assert.Equal(t, float64(defaultWindowDays), window.Hours()/24)
}

func TestSyncInvalidDates(t *testing.T) {
	r := testRouter(&fakeReportService{})

	body := `{"startDate":"21/11/2025","endDate":"2025-11-21"}`
	req := httptest.NewRequest(http.MethodPost, "/reports/sync", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncInvalidRangeFromService(t *testing.T) {
	svc := &fakeReportService{runErr: entity.ErrInvalidRange}
	r := testRouter(svc)

	body := `{"startDate":"2025-11-21","endDate":"2025-11-01"}`
	req := httptest.NewRequest(http.MethodPost, "/reports/sync", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncFailedRunReturnsPartialResult(t *testing.T) {
	svc := &fakeReportService{
		run:    &policy.RunResult{State: policy.StateFailed, Error: "all destinations failed"},
		runErr: errors.New("all destinations failed"),
	}
	r := testRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/reports/sync", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var got policy.RunResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, policy.StateFailed, got.State)
}

func TestSummaryEndpoint(t *testing.T) {
	svc := &fakeReportService{records: []entity.MetricRecord{
		{SenderID: 101, ConnectionsSent: 100, ConnectionsAccepted: 10},
		{SenderID: 102, ConnectionsSent: 76, ConnectionsAccepted: 39},
	}}
	r := testRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/summary?start=2025-11-15&end=2025-11-21", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var got SummaryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "2025-11-15", got.StartDate)
	require.Len(t, got.Records, 2)
	assert.Equal(t, 100, got.Records[0].ConnectionsSent)

	// Window-wide totals with the overall rate from the summed counters
	assert.Equal(t, 176, got.Totals.ConnectionsSent)
	assert.Equal(t, 49, got.Totals.ConnectionsAccepted)
	assert.Equal(t, 27.84, got.Totals.AcceptanceRate)
}

func TestSummaryMissingDates(t *testing.T) {
	r := testRouter(&fakeReportService{})

	req := httptest.NewRequest(http.MethodGet, "/summary", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendersEndpoint(t *testing.T) {
	svc := &fakeReportService{senders: []entity.Sender{
		{ID: 101, Name: "Corinne Kazoleas", Client: "acme"},
		{ID: 102},
	}}
	r := testRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/senders", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Senders []SenderResponse `json:"senders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Senders, 2)
	assert.Equal(t, "Corinne Kazoleas", got.Senders[0].Name)
	// Unnamed senders fall back to an ID-derived label
	assert.Equal(t, "Sender 102", got.Senders[1].Name)
}

func TestRunsDisabledWithoutHistory(t *testing.T) {
	r := testRouter(&fakeReportService{})

	req := httptest.NewRequest(http.MethodGet, "/reports/runs", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
