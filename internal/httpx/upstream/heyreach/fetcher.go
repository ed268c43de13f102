package heyreach

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 10

// Unit is one independently fetchable query: one account, one window
type Unit struct {
	AccountID int64
	Start     time.Time
	End       time.Time
}

// UnitResult carries either a unit's stats or its terminal fetch error
type UnitResult struct {
	Unit  Unit
	Stats *OverallStats
	Err   error
}

// Fetcher runs stats queries concurrently over a bounded worker pool.
// One unit failing never aborts its siblings; each result records its
// own error.
type Fetcher struct {
	client  *Client
	workers int
	logger  *slog.Logger
}

// NewFetcher creates a fetcher over client with at most workers
// in-flight requests.
func NewFetcher(client *Client, workers int, logger *slog.Logger) *Fetcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Fetcher{client: client, workers: workers, logger: logger}
}

// FetchAll fetches every unit and returns results in input order. A
// canceled context marks the remaining units with the context error
// rather than dropping them.
func (f *Fetcher) FetchAll(ctx context.Context, units []Unit) []UnitResult {
	results := make([]UnitResult, len(units))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i, u := range units {
		results[i].Unit = u
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			stats, err := f.client.GetOverallStats(ctx, GetOverallStatsInput{
				AccountIDs: []int64{u.AccountID},
				StartDate:  u.Start,
				EndDate:    u.End,
			})
			if err != nil {
				f.logger.Error("stats fetch failed",
					"account_id", u.AccountID,
					"start", u.Start.Format(time.DateOnly),
					"end", u.End.Format(time.DateOnly),
					"error", err)
				results[i].Err = err
				return nil
			}
			results[i].Stats = stats
			return nil
		})
	}
	g.Wait()

	return results
}
