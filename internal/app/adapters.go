package app

import (
	"context"
	"fmt"

	"github.com/daniel/reach-sync/internal/config"
	"github.com/daniel/reach-sync/internal/domain/report/entity"
	"github.com/daniel/reach-sync/internal/domain/report/policy"
	"github.com/daniel/reach-sync/internal/domain/report/service"
	"github.com/daniel/reach-sync/internal/httpx/upstream/heyreach"
)

// metricsFetcherAdapter adapts heyreach.Fetcher to policy.MetricsFetcher
type metricsFetcherAdapter struct {
	fetcher *heyreach.Fetcher
}

func (a *metricsFetcherAdapter) FetchAll(ctx context.Context, units []policy.FetchUnit) []policy.FetchResult {
	upstream := make([]heyreach.Unit, len(units))
	for i, u := range units {
		upstream[i] = heyreach.Unit{
			AccountID: u.Sender.ID,
			Start:     u.Week.Start,
			End:       u.Week.End,
		}
	}

	results := a.fetcher.FetchAll(ctx, upstream)

	out := make([]policy.FetchResult, len(units))
	for i, res := range results {
		out[i] = policy.FetchResult{Unit: units[i], Err: res.Err}
		if res.Stats == nil {
			continue
		}
		out[i].PageID = fmt.Sprintf("%d/%s", units[i].Sender.ID, units[i].Week.Key())
		out[i].Page = service.Counters{
			ConnectionsSent:     res.Stats.ConnectionsSent,
			ConnectionsAccepted: res.Stats.ConnectionsAccepted,
			MessagesSent:        res.Stats.MessagesSent,
			MessageReplies:      res.Stats.MessageReplies,
			OpenConversations:   res.Stats.OpenConversations,
			Interested:          res.Stats.Interested,
		}
	}
	return out
}

// senderSource lists senders by merging manual configuration with
// upstream account discovery. Configured IDs and names win; the API
// fills in whatever the configuration leaves out.
type senderSource struct {
	client    *heyreach.Client
	manualIDs []int64
	names     map[int64]string
	clients   map[int64]string
}

func newSenderSource(client *heyreach.Client, cfg config.HeyReach) (*senderSource, error) {
	ids, err := cfg.SenderIDs()
	if err != nil {
		return nil, err
	}
	names, err := cfg.SenderNames()
	if err != nil {
		return nil, err
	}
	groups, err := cfg.ClientGroups()
	if err != nil {
		return nil, err
	}

	clients := make(map[int64]string)
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	for name, group := range groups {
		for _, id := range group.SenderIDs {
			clients[id] = name
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	return &senderSource{
		client:    client,
		manualIDs: ids,
		names:     names,
		clients:   clients,
	}, nil
}

func (s *senderSource) Senders(ctx context.Context) ([]entity.Sender, error) {
	accounts, err := s.client.GetLinkedInAccounts(ctx)
	if err != nil && len(s.manualIDs) == 0 {
		return nil, fmt.Errorf("discovering accounts: %w", err)
	}

	apiNames := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		apiNames[a.ID] = a.FullName()
	}

	ids := s.manualIDs
	if len(ids) == 0 {
		ids = make([]int64, 0, len(accounts))
		for _, a := range accounts {
			ids = append(ids, a.ID)
		}
	}

	senders := make([]entity.Sender, 0, len(ids))
	for _, id := range ids {
		name := s.names[id]
		if name == "" {
			name = apiNames[id]
		}
		senders = append(senders, entity.Sender{ID: id, Name: name, Client: s.clients[id]})
	}
	return senders, nil
}

// groupResolver maps senders to worksheets via client groups, falling
// back to the default worksheet when a sender belongs to no group
type groupResolver struct {
	byID             map[int64]string
	defaultWorksheet string
}

func newGroupResolver(cfg config.HeyReach, defaultWorksheet string) (*groupResolver, error) {
	groups, err := cfg.ClientGroups()
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]string)
	for name, group := range groups {
		worksheet := group.Worksheet
		if worksheet == "" {
			worksheet = name
		}
		for _, id := range group.SenderIDs {
			byID[id] = worksheet
		}
	}
	return &groupResolver{byID: byID, defaultWorksheet: defaultWorksheet}, nil
}

func (r *groupResolver) Resolve(senderID int64) (string, bool) {
	if worksheet, ok := r.byID[senderID]; ok {
		return worksheet, true
	}
	if r.defaultWorksheet != "" {
		return r.defaultWorksheet, true
	}
	return "", false
}

// pipelineRunnerAdapter adapts policy.Policy to scheduler.PipelineRunner
type pipelineRunnerAdapter struct {
	policy *policy.Policy
}

func (a *pipelineRunnerAdapter) RunTrailing(ctx context.Context, days int) error {
	_, err := a.policy.RunTrailing(ctx, days)
	return err
}
