package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	report "github.com/daniel/reach-sync/internal/domain/report/entity"
	"github.com/daniel/reach-sync/internal/domain/sheet/entity"
)

// WritePolicy controls whether reconciliation may replace values a human
// already entered. It is applied uniformly across all cells of one
// reconciliation call.
type WritePolicy string

const (
	WriteOnlyIfEmpty WritePolicy = "only-if-empty"
	WriteAlways      WritePolicy = "always-overwrite"
)

// ParseWritePolicy validates a configured policy string.
func ParseWritePolicy(s string) (WritePolicy, error) {
	switch WritePolicy(s) {
	case WriteOnlyIfEmpty, WriteAlways:
		return WritePolicy(s), nil
	case "":
		return WriteOnlyIfEmpty, nil
	}
	return "", fmt.Errorf("%w: %q", entity.ErrInvalidWritePolicy, s)
}

// Item pairs one sender with its aggregated records destined for a grid.
type Item struct {
	Sender  report.Sender
	Records []report.MetricRecord
}

// BatchResult reports one reconciliation pass over a destination grid.
type BatchResult struct {
	Outcomes       []entity.ReconciliationOutcome
	CreatedColumns []string
	CellsWritten   int
}

// Reconciler writes aggregated metrics into a destination grid. All
// senders headed for the same grid are processed as one batch against
// one loaded snapshot; the snapshot is refreshed after every structural
// change before further row/column math.
type Reconciler struct {
	store   Store
	locator Locator
	cols    *ColumnScheduler
	policy  WritePolicy
	logger  *slog.Logger
}

// NewReconciler creates a reconciliation engine.
func NewReconciler(store Store, policy WritePolicy, toleranceDays int, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		cols:   NewColumnScheduler(store, toleranceDays),
		policy: policy,
		logger: logger,
	}
}

// Reconcile processes all items destined for destID as one batch. It
// never grows new sender blocks: an unmatched sender is reported
// not-found with zero structural mutation. New date columns for the
// whole batch are computed once, sorted ascending and appended in order
// so the header stays monotonic regardless of record order.
func (r *Reconciler) Reconcile(ctx context.Context, destID string, items []Item) (*BatchResult, error) {
	g, err := r.store.LoadGrid(ctx, destID)
	if err != nil {
		return nil, fmt.Errorf("loading grid %q: %w", destID, err)
	}
	headerRow, err := r.locator.LocateHeader(g)
	if err != nil {
		return nil, err
	}

	matches := r.matchAll(g, items)

	result := &BatchResult{}
	created, createdKeys, failed, err := r.createMissingColumns(ctx, destID, &g, &headerRow, items, matches)
	if err != nil {
		return nil, err
	}
	result.CreatedColumns = createdKeys

	for i, item := range items {
		outcome := r.reconcileSender(ctx, destID, g, headerRow, item, matches[i], created, failed)
		result.CellsWritten += outcome.CellsWritten
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result, nil
}

// matchAll resolves every sender against the grid's row labels once,
// before any mutation.
func (r *Reconciler) matchAll(g *entity.Grid, items []Item) []entity.MatchResult {
	candidates := make([]Candidate, 0, g.NumRows())
	for row := 0; row < g.NumRows(); row++ {
		candidates = append(candidates, Candidate{Row: row, Label: g.Cell(row, 0)})
	}
	matches := make([]entity.MatchResult, len(items))
	for i, item := range items {
		matches[i] = Match(item.Sender.DisplayName(), candidates)
	}
	return matches
}

// createMissingColumns collects every week-ending date in the batch that
// has no header column, sorts them ascending and appends them in order.
// The grid snapshot is refreshed after the structural pass. On a
// structural conflict the grid is re-read and the step retried once; a
// date whose append still fails is returned in the failed map so each
// affected sender's outcome can carry the error.
func (r *Reconciler) createMissingColumns(ctx context.Context, destID string, g **entity.Grid, headerRow *int, items []Item, matches []entity.MatchResult) (map[string]bool, []string, map[string]string, error) {
	missing := map[string]time.Time{}
	for i, item := range items {
		if !matches[i].Found() {
			continue
		}
		for _, rec := range item.Records {
			if _, ok := r.cols.Find(*g, *headerRow, rec.Week.End); !ok {
				missing[HeaderKey(rec.Week.End)] = rec.Week.End
			}
		}
	}
	created := make(map[string]bool, len(missing))
	failed := map[string]string{}
	if len(missing) == 0 {
		return created, nil, failed, nil
	}

	dates := make([]time.Time, 0, len(missing))
	for _, d := range missing {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var keys []string
	for _, d := range dates {
		if _, err := r.appendColumn(ctx, destID, g, headerRow, d); err != nil {
			r.logger.Error("creating date column failed",
				"destination", destID, "date", HeaderKey(d), "error", err)
			failed[HeaderKey(d)] = fmt.Sprintf("creating column %s: %v", HeaderKey(d), err)
			continue
		}
		created[HeaderKey(d)] = true
		keys = append(keys, HeaderKey(d))
	}

	// Structural mutation happened: re-read before any further math.
	if len(created) > 0 {
		fresh, err := r.store.LoadGrid(ctx, destID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("refreshing grid %q: %w", destID, err)
		}
		row, err := r.locator.LocateHeader(fresh)
		if err != nil {
			return nil, nil, nil, err
		}
		*g, *headerRow = fresh, row
	}
	return created, keys, failed, nil
}

func (r *Reconciler) appendColumn(ctx context.Context, destID string, g **entity.Grid, headerRow *int, d time.Time) (int, error) {
	col, err := r.cols.Append(ctx, destID, *g, *headerRow, d)
	if !errors.Is(err, entity.ErrStructuralConflict) {
		return col, err
	}

	// The sheet changed shape under us; re-read and retry once.
	fresh, loadErr := r.store.LoadGrid(ctx, destID)
	if loadErr != nil {
		return -1, loadErr
	}
	row, locErr := r.locator.LocateHeader(fresh)
	if locErr != nil {
		return -1, locErr
	}
	*g, *headerRow = fresh, row
	return r.cols.Append(ctx, destID, *g, *headerRow, d)
}

func (r *Reconciler) reconcileSender(ctx context.Context, destID string, g *entity.Grid, headerRow int, item Item, match entity.MatchResult, created map[string]bool, failed map[string]string) entity.ReconciliationOutcome {
	outcome := entity.ReconciliationOutcome{
		SenderID:   item.Sender.ID,
		SenderName: item.Sender.DisplayName(),
	}
	if !match.Found() {
		outcome.Status = entity.OutcomeNotFound
		return outcome
	}
	outcome.MatchTier = match.Tier.String()
	outcome.MatchedLabel = match.Label

	if len(item.Records) == 0 {
		outcome.Status = entity.OutcomeSkippedNoData
		return outcome
	}

	metricRows := r.locator.MetricRows(match.Row)
	r.correctMetricLabels(ctx, destID, g, metricRows, &outcome)

	resolved := 0
	for _, rec := range item.Records {
		col, ok := r.cols.Find(g, headerRow, rec.Week.End)
		if !ok {
			if msg, bad := failed[HeaderKey(rec.Week.End)]; bad && outcome.Error == "" {
				outcome.Error = msg
			}
			continue
		}
		resolved++
		if created[HeaderKey(rec.Week.End)] {
			outcome.ColumnsCreated++
		}
		r.writeRecord(ctx, destID, g, metricRows, col, rec, &outcome)
	}
	if resolved == 0 {
		outcome.Status = entity.OutcomeSkippedNoColumn
		return outcome
	}
	outcome.Status = entity.OutcomeUpdated
	return outcome
}

// correctMetricLabels rewrites a block's row labels where they mismatch
// the canonical metric name at that offset. Rows are never reordered.
func (r *Reconciler) correctMetricLabels(ctx context.Context, destID string, g *entity.Grid, metricRows []int, outcome *entity.ReconciliationOutcome) {
	for i, row := range metricRows {
		want := entity.MetricLabels[i]
		have := strings.TrimSpace(g.Cell(row, 0))
		if strings.EqualFold(have, want) {
			continue
		}
		if err := r.store.UpdateCell(ctx, destID, row, 0, want); err != nil {
			r.logger.Error("correcting metric label failed",
				"destination", destID, "row", row, "label", want, "error", err)
			continue
		}
		g.SetCell(row, 0, want)
	}
}

func (r *Reconciler) writeRecord(ctx context.Context, destID string, g *entity.Grid, metricRows []int, col int, rec report.MetricRecord, outcome *entity.ReconciliationOutcome) {
	for i, value := range metricValues(rec) {
		row := metricRows[i]
		if r.policy == WriteOnlyIfEmpty && strings.TrimSpace(g.Cell(row, col)) != "" {
			continue
		}
		if err := r.store.UpdateCell(ctx, destID, row, col, value); err != nil {
			outcome.Error = fmt.Sprintf("writing %s for week %s: %v", entity.MetricLabels[i], rec.Week.Key(), err)
			r.logger.Error("cell write failed",
				"destination", destID, "row", row, "col", col, "error", err)
			continue
		}
		g.SetCell(row, col, value)
		outcome.CellsWritten++
	}
}

// metricValues renders a record's cell values in canonical metric order.
// Counts are plain numbers; rates are formatted percentage strings.
func metricValues(rec report.MetricRecord) []string {
	return []string{
		strconv.Itoa(rec.ConnectionsSent),
		strconv.Itoa(rec.ConnectionsAccepted),
		fmt.Sprintf("%.2f%%", rec.AcceptanceRate),
		strconv.Itoa(rec.MessagesSent),
		strconv.Itoa(rec.MessageReplies),
		fmt.Sprintf("%.2f%%", rec.ReplyRate),
		strconv.Itoa(rec.OpenConversations),
		strconv.Itoa(rec.Interested),
	}
}
