package service

import (
	"github.com/daniel/reach-sync/internal/domain/report/entity"
)

// Counters holds the raw additive metrics of one stats page.
type Counters struct {
	ConnectionsSent     int `json:"connectionsSent"`
	ConnectionsAccepted int `json:"connectionsAccepted"`
	MessagesSent        int `json:"messagesSent"`
	MessageReplies      int `json:"messageReplies"`
	OpenConversations   int `json:"openConversations"`
	Interested          int `json:"interested"`
}

func (c *Counters) add(o Counters) {
	c.ConnectionsSent += o.ConnectionsSent
	c.ConnectionsAccepted += o.ConnectionsAccepted
	c.MessagesSent += o.MessagesSent
	c.MessageReplies += o.MessageReplies
	c.OpenConversations += o.OpenConversations
	c.Interested += o.Interested
}

// Page is one fetched stats page carrying a stable identity so retried
// or duplicated fetches merge exactly once.
type Page struct {
	ID string
	Counters
}

// Accumulator merges stats pages for one sender and week. Counter
// metrics sum; derived rates are never summed, only recomputed from the
// final totals.
type Accumulator struct {
	sender entity.Sender
	week   entity.WeekBucket
	totals Counters
	seen   map[string]bool
}

func NewAccumulator(sender entity.Sender, week entity.WeekBucket) *Accumulator {
	return &Accumulator{
		sender: sender,
		week:   week,
		seen:   make(map[string]bool),
	}
}

// Add merges one page into the running totals. A page whose identity was
// already merged is ignored and Add reports false.
func (a *Accumulator) Add(p Page) bool {
	if p.ID != "" {
		if a.seen[p.ID] {
			return false
		}
		a.seen[p.ID] = true
	}
	a.totals.add(p.Counters)
	return true
}

// Record finalizes the accumulated totals into a metric record with
// rates computed from the summed counters.
func (a *Accumulator) Record() entity.MetricRecord {
	rec := entity.MetricRecord{
		SenderID:            a.sender.ID,
		SenderName:          a.sender.DisplayName(),
		Week:                a.week,
		ConnectionsSent:     a.totals.ConnectionsSent,
		ConnectionsAccepted: a.totals.ConnectionsAccepted,
		MessagesSent:        a.totals.MessagesSent,
		MessageReplies:      a.totals.MessageReplies,
		OpenConversations:   a.totals.OpenConversations,
		Interested:          a.totals.Interested,
	}
	rec.ComputeRates()
	return rec
}

// Aggregate folds a batch of pages into a single record. Pages sharing
// an identity are merged once regardless of order.
func Aggregate(sender entity.Sender, week entity.WeekBucket, pages []Page) entity.MetricRecord {
	acc := NewAccumulator(sender, week)
	for _, p := range pages {
		acc.Add(p)
	}
	return acc.Record()
}
