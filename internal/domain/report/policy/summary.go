package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/daniel/reach-sync/internal/domain/report/entity"
)

// ListSenders returns the senders a run would cover
func (p *Policy) ListSenders(ctx context.Context) ([]entity.Sender, error) {
	return p.senders.Senders(ctx)
}

// Summary fetches and aggregates the window without touching any
// destination grid. Records come back grouped by sender in provider
// order, weeks ascending.
func (p *Policy) Summary(ctx context.Context, start, end time.Time) ([]entity.MetricRecord, error) {
	run := &RunResult{State: StateFetching, WindowStart: start, WindowEnd: end}

	weeks, err := p.bucketer.Slice(start, end)
	if err != nil {
		return nil, err
	}
	senders, err := p.senders.Senders(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing senders: %w", err)
	}
	if len(senders) == 0 {
		return nil, entity.ErrNoSenders
	}

	records, failed := p.fetchAndAggregate(ctx, run, senders, weeks)
	if failed == len(senders)*len(weeks) && failed > 0 {
		return nil, fmt.Errorf("all %d fetch units failed", failed)
	}

	var out []entity.MetricRecord
	for _, s := range senders {
		out = append(out, records[s.ID]...)
	}
	return out, nil
}
