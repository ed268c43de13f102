package policy

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/daniel/reach-sync/internal/domain/report/entity"
	"github.com/daniel/reach-sync/internal/domain/report/service"
	sheetentity "github.com/daniel/reach-sync/internal/domain/sheet/entity"
	sheetsvc "github.com/daniel/reach-sync/internal/domain/sheet/service"
)

// RunState is the lifecycle phase of one pipeline run. FAILED is
// terminal; entity-scoped failures accumulate in the result instead of
// changing the state.
type RunState string

const (
	StateFetching    RunState = "FETCHING"
	StateAggregating RunState = "AGGREGATING"
	StateGrouping    RunState = "GROUPING"
	StateReconciling RunState = "RECONCILING"
	StateDone        RunState = "DONE"
	StateFailed      RunState = "FAILED"
)

const reconcileConcurrency = 4

// FetchUnit is one sender-week query the upstream must answer
type FetchUnit struct {
	Sender entity.Sender
	Week   entity.WeekBucket
}

// FetchResult is a unit's answer: a stats page or a terminal error
type FetchResult struct {
	Unit   FetchUnit
	PageID string
	Page   service.Counters
	Err    error
}

// MetricsFetcher defines the interface for upstream stats retrieval
// This interface is defined here (consumer) not in the upstream package (provider)
type MetricsFetcher interface {
	FetchAll(ctx context.Context, units []FetchUnit) []FetchResult
}

// SenderProvider lists the senders a run covers, already merged from
// manual configuration and upstream account discovery
type SenderProvider interface {
	Senders(ctx context.Context) ([]entity.Sender, error)
}

// DestinationResolver maps a sender to its destination grid
type DestinationResolver interface {
	Resolve(senderID int64) (destID string, ok bool)
}

// SheetReconciler writes one destination's batch of aggregated records
type SheetReconciler interface {
	Reconcile(ctx context.Context, destID string, items []sheetsvc.Item) (*sheetsvc.BatchResult, error)
}

// RunStore persists run history; Archiver keeps full run summaries in
// object storage. Both are optional.
type RunStore interface {
	SaveRun(ctx context.Context, run *RunResult) error
}

type Archiver interface {
	ArchiveRun(ctx context.Context, run *RunResult) error
}

// PipelineMetrics observes run outcomes; nil-safe at the call sites
type PipelineMetrics interface {
	ObserveRun(state RunState, duration time.Duration)
	AddCellsWritten(n int)
	AddFetchErrors(n int)
}

// Counts summarizes per-sender reconciliation outcomes
type Counts struct {
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	NotFound int `json:"notFound"`
	Errored  int `json:"errored"`
}

// RunResult is the full account of one pipeline run
type RunResult struct {
	RunID          uuid.UUID                           `json:"runId"`
	State          RunState                            `json:"state"`
	WindowStart    time.Time                           `json:"windowStart"`
	WindowEnd      time.Time                           `json:"windowEnd"`
	StartedAt      time.Time                           `json:"startedAt"`
	FinishedAt     time.Time                           `json:"finishedAt"`
	Outcomes       []sheetentity.ReconciliationOutcome `json:"outcomes"`
	CreatedColumns []string                            `json:"createdColumns"`
	CellsWritten   int                                 `json:"cellsWritten"`
	Counts         Counts                              `json:"counts"`
	FetchErrors    []string                            `json:"fetchErrors,omitempty"`
	Error          string                              `json:"error,omitempty"`
}

// Policy orchestrates the fetch, aggregate, group and reconcile phases
type Policy struct {
	senders  SenderProvider
	fetcher  MetricsFetcher
	resolver DestinationResolver
	sheets   SheetReconciler
	bucketer entity.Bucketer
	store    RunStore
	archive  Archiver
	metrics  PipelineMetrics
	logger   *slog.Logger
}

// New creates a pipeline policy. store, archive and metrics may be nil.
func New(senders SenderProvider, fetcher MetricsFetcher, resolver DestinationResolver, sheets SheetReconciler, store RunStore, archive Archiver, metrics PipelineMetrics, logger *slog.Logger) *Policy {
	return &Policy{
		senders:  senders,
		fetcher:  fetcher,
		resolver: resolver,
		sheets:   sheets,
		bucketer: entity.NewBucketer(entity.DefaultWeekEnd),
		store:    store,
		archive:  archive,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run executes one full pipeline pass over [start, end]. A sender's
// fetch or write failing is recorded and the run continues; the run
// itself fails only when nothing at all can proceed.
func (p *Policy) Run(ctx context.Context, start, end time.Time) (*RunResult, error) {
	run := &RunResult{
		RunID:       uuid.New(),
		State:       StateFetching,
		WindowStart: start,
		WindowEnd:   end,
		StartedAt:   time.Now().UTC(),
	}
	log := p.logger.With("run_id", run.RunID)

	err := p.execute(ctx, run, log)
	run.FinishedAt = time.Now().UTC()
	if err != nil {
		run.State = StateFailed
		run.Error = err.Error()
		log.Error("pipeline run failed", "state", run.State, "error", err)
	} else {
		run.State = StateDone
		log.Info("pipeline run finished",
			"updated", run.Counts.Updated,
			"skipped", run.Counts.Skipped,
			"not_found", run.Counts.NotFound,
			"errored", run.Counts.Errored,
			"cells_written", run.CellsWritten,
			"columns_created", len(run.CreatedColumns))
	}

	p.record(ctx, run, log)
	if err != nil {
		return run, err
	}
	return run, nil
}

// RunTrailing runs the pipeline over the trailing window of days,
// ending today.
func (p *Policy) RunTrailing(ctx context.Context, days int) (*RunResult, error) {
	end := time.Now().UTC()
	return p.Run(ctx, end.AddDate(0, 0, -days), end)
}

func (p *Policy) execute(ctx context.Context, run *RunResult, log *slog.Logger) error {
	weeks, err := p.bucketer.Slice(run.WindowStart, run.WindowEnd)
	if err != nil {
		return err
	}

	senders, err := p.senders.Senders(ctx)
	if err != nil {
		return fmt.Errorf("listing senders: %w", err)
	}
	if len(senders) == 0 {
		return entity.ErrNoSenders
	}

	records, fetchErrs := p.fetchAndAggregate(ctx, run, senders, weeks)
	if fetchErrs == len(senders)*len(weeks) && fetchErrs > 0 {
		return fmt.Errorf("all %d fetch units failed", fetchErrs)
	}

	run.State = StateGrouping
	groups, unrouted := p.group(run, senders, records)
	if len(groups) == 0 {
		if unrouted > 0 {
			return fmt.Errorf("no sender has a destination: %w", entity.ErrNoDestination)
		}
		return entity.ErrNoDestination
	}

	run.State = StateReconciling
	return p.reconcile(ctx, run, groups, log)
}

// fetchAndAggregate fans sender-week units out to the upstream and
// folds the answers into one record per sender and week. Returns
// records keyed by sender ID and the count of failed units.
func (p *Policy) fetchAndAggregate(ctx context.Context, run *RunResult, senders []entity.Sender, weeks []entity.WeekBucket) (map[int64][]entity.MetricRecord, int) {
	units := make([]FetchUnit, 0, len(senders)*len(weeks))
	for _, s := range senders {
		for _, w := range weeks {
			units = append(units, FetchUnit{Sender: s, Week: w})
		}
	}

	results := p.fetcher.FetchAll(ctx, units)

	run.State = StateAggregating
	failed := 0
	byUnit := make(map[int64]map[string]*service.Accumulator)
	for _, res := range results {
		s, w := res.Unit.Sender, res.Unit.Week
		if res.Err != nil {
			failed++
			run.FetchErrors = append(run.FetchErrors,
				fmt.Sprintf("%s week %s: %v", s.DisplayName(), w.Key(), res.Err))
			continue
		}
		if byUnit[s.ID] == nil {
			byUnit[s.ID] = make(map[string]*service.Accumulator)
		}
		acc := byUnit[s.ID][w.Key()]
		if acc == nil {
			acc = service.NewAccumulator(s, w)
			byUnit[s.ID][w.Key()] = acc
		}
		acc.Add(service.Page{ID: res.PageID, Counters: res.Page})
	}
	if p.metrics != nil && failed > 0 {
		p.metrics.AddFetchErrors(failed)
	}

	records := make(map[int64][]entity.MetricRecord, len(byUnit))
	for _, s := range senders {
		accs := byUnit[s.ID]
		recs := make([]entity.MetricRecord, 0, len(accs))
		for _, w := range weeks {
			if acc, ok := accs[w.Key()]; ok {
				recs = append(recs, acc.Record())
			}
		}
		records[s.ID] = recs
	}
	return records, failed
}

// group routes each sender's records to its destination grid. A sender
// without a destination lands in the run summary as not-found, never
// fatal on its own.
func (p *Policy) group(run *RunResult, senders []entity.Sender, records map[int64][]entity.MetricRecord) (map[string][]sheetsvc.Item, int) {
	groups := make(map[string][]sheetsvc.Item)
	unrouted := 0
	for _, s := range senders {
		destID, ok := p.resolver.Resolve(s.ID)
		if !ok {
			unrouted++
			p.logger.Warn("sender has no destination", "sender_id", s.ID, "sender", s.DisplayName())
			run.Outcomes = append(run.Outcomes, sheetentity.ReconciliationOutcome{
				SenderID:   s.ID,
				SenderName: s.DisplayName(),
				Status:     sheetentity.OutcomeNotFound,
			})
			continue
		}
		groups[destID] = append(groups[destID], sheetsvc.Item{Sender: s, Records: records[s.ID]})
	}
	return groups, unrouted
}

func (p *Policy) reconcile(ctx context.Context, run *RunResult, groups map[string][]sheetsvc.Item, log *slog.Logger) error {
	destIDs := make([]string, 0, len(groups))
	for destID := range groups {
		destIDs = append(destIDs, destID)
	}
	sort.Strings(destIDs)

	var mu sync.Mutex
	failedDests := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)
	for _, destID := range destIDs {
		items := groups[destID]
		g.Go(func() error {
			batch, err := p.sheets.Reconcile(gctx, destID, items)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failedDests++
				log.Error("destination reconcile failed", "destination", destID, "error", err)
				for _, item := range items {
					run.Outcomes = append(run.Outcomes, sheetentity.ReconciliationOutcome{
						SenderID:   item.Sender.ID,
						SenderName: item.Sender.DisplayName(),
						Status:     sheetentity.OutcomeSkippedNoColumn,
						Error:      err.Error(),
					})
				}
				return nil
			}
			run.Outcomes = append(run.Outcomes, batch.Outcomes...)
			run.CreatedColumns = append(run.CreatedColumns, batch.CreatedColumns...)
			run.CellsWritten += batch.CellsWritten
			return nil
		})
	}
	g.Wait()

	if failedDests == len(destIDs) {
		return fmt.Errorf("all %d destinations failed to reconcile", failedDests)
	}

	for _, o := range run.Outcomes {
		switch {
		case o.Error != "":
			run.Counts.Errored++
		case o.Status == sheetentity.OutcomeUpdated:
			run.Counts.Updated++
		case o.Status == sheetentity.OutcomeNotFound:
			run.Counts.NotFound++
		default:
			run.Counts.Skipped++
		}
	}
	if p.metrics != nil {
		p.metrics.AddCellsWritten(run.CellsWritten)
	}
	return nil
}

// record persists the run to every configured sink, best effort
func (p *Policy) record(ctx context.Context, run *RunResult, log *slog.Logger) {
	if p.metrics != nil {
		p.metrics.ObserveRun(run.State, run.FinishedAt.Sub(run.StartedAt))
	}
	if p.store != nil {
		if err := p.store.SaveRun(ctx, run); err != nil {
			log.Error("saving run history failed", "error", err)
		}
	}
	if p.archive != nil {
		if err := p.archive.ArchiveRun(ctx, run); err != nil {
			log.Error("archiving run failed", "error", err)
		}
	}
}
