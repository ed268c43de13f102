package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/daniel/reach-sync/internal/domain/report/dao"
	"github.com/daniel/reach-sync/internal/domain/report/entity"
	"github.com/daniel/reach-sync/internal/domain/report/policy"
	"github.com/daniel/reach-sync/internal/httpx/response"
)

const defaultWindowDays = 14

// ReportService defines the interface for report pipeline operations
type ReportService interface {
	Run(ctx context.Context, start, end time.Time) (*policy.RunResult, error)
	Summary(ctx context.Context, start, end time.Time) ([]entity.MetricRecord, error)
	ListSenders(ctx context.Context) ([]entity.Sender, error)
}

// RunHistory defines the interface for reading past runs
type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]dao.RunRecord, error)
}

// ReportHandler handles report pipeline HTTP requests
type ReportHandler struct {
	svc     ReportService
	history RunHistory // nil when run history is disabled
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc ReportService, history RunHistory) *ReportHandler {
	return &ReportHandler{svc: svc, history: history}
}

// RegisterRoutes registers report routes
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Post("/reports/sync", h.Sync())
	r.Get("/reports/runs", h.Runs())
	r.Get("/summary", h.Summary())
	r.Get("/senders", h.Senders())
}

// SyncRequest represents the request body for triggering a sync run.
// Either an explicit date window or a trailing day count; dates win.
type SyncRequest struct {
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	WindowDays int    `json:"windowDays"`
}

// Sync handles POST /reports/sync
func (h *ReportHandler) Sync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SyncRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				response.BadRequest(w, "invalid request body")
				return
			}
		}

		start, end, err := req.window()
		if err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		run, err := h.svc.Run(r.Context(), start, end)
		if err != nil {
			if errors.Is(err, entity.ErrInvalidRange) {
				response.BadRequest(w, err.Error())
				return
			}
			// The run result still describes what happened before failure
			response.JSON(w, http.StatusBadGateway, run)
			return
		}
		response.OK(w, run)
	}
}

func (req SyncRequest) window() (time.Time, time.Time, error) {
	if req.StartDate == "" && req.EndDate == "" {
		days := req.WindowDays
		if days <= 0 {
			days = defaultWindowDays
		}
		end := time.Now().UTC()
		return end.AddDate(0, 0, -days), end, nil
	}
	return parseWindow(req.StartDate, req.EndDate)
}

// SummaryResponse represents the response from the summary endpoint
type SummaryResponse struct {
	StartDate string                `json:"startDate"`
	EndDate   string                `json:"endDate"`
	Totals    entity.MetricTotals   `json:"totals"`
	Records   []entity.MetricRecord `json:"records"`
}

// Summary handles GET /summary?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *ReportHandler) Summary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, end, err := parseWindow(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
		if err != nil {
			response.BadRequest(w, err.Error())
			return
		}

		records, err := h.svc.Summary(r.Context(), start, end)
		if err != nil {
			if errors.Is(err, entity.ErrInvalidRange) {
				response.BadRequest(w, err.Error())
				return
			}
			response.InternalError(w, err.Error())
			return
		}
		if records == nil {
			records = []entity.MetricRecord{}
		}
		response.OK(w, SummaryResponse{
			StartDate: start.Format(time.DateOnly),
			EndDate:   end.Format(time.DateOnly),
			Totals:    entity.Summarize(records),
			Records:   records,
		})
	}
}

// SenderResponse represents one sender in the senders listing
type SenderResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Client string `json:"client,omitempty"`
}

// Senders handles GET /senders
func (h *ReportHandler) Senders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		senders, err := h.svc.ListSenders(r.Context())
		if err != nil {
			response.InternalError(w, err.Error())
			return
		}

		out := make([]SenderResponse, 0, len(senders))
		for _, s := range senders {
			out = append(out, SenderResponse{ID: s.ID, Name: s.DisplayName(), Client: s.Client})
		}
		response.OK(w, map[string]any{"senders": out})
	}
}

// Runs handles GET /reports/runs?limit=N
func (h *ReportHandler) Runs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.history == nil {
			response.NotFound(w, "run history is not enabled")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		runs, err := h.history.ListRuns(r.Context(), limit)
		if err != nil {
			response.InternalError(w, err.Error())
			return
		}
		if runs == nil {
			runs = []dao.RunRecord{}
		}
		response.OK(w, map[string]any{"runs": runs})
	}
}

func parseWindow(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.DateOnly, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("start must be a YYYY-MM-DD date")
	}
	end, err := time.Parse(time.DateOnly, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("end must be a YYYY-MM-DD date")
	}
	return start, end, nil
}
