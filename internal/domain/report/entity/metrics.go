package entity

import "math"

// MetricRecord is the aggregated result for one (sender, week) pair.
// Every counter is always present (zero when the upstream omitted it) so
// downstream consumers never have to test for missing fields.
type MetricRecord struct {
	SenderID   int64  `json:"sender_id"`
	SenderName string `json:"sender_name"`

	Week WeekBucket `json:"week"`

	ConnectionsSent     int `json:"connections_sent"`
	ConnectionsAccepted int `json:"connections_accepted"`
	MessagesSent        int `json:"messages_sent"`
	MessageReplies      int `json:"message_replies"`
	OpenConversations   int `json:"open_conversations"`
	Interested          int `json:"interested"`

	// Derived percentages in [0, 100], rounded to 2 decimal places.
	AcceptanceRate float64 `json:"acceptance_rate"`
	ReplyRate      float64 `json:"reply_rate"`
}

// ComputeRates recalculates the derived percentage fields from the
// counters. Zero denominators yield a zero rate.
func (r *MetricRecord) ComputeRates() {
	r.AcceptanceRate = Rate(r.ConnectionsAccepted, r.ConnectionsSent)
	r.ReplyRate = Rate(r.MessageReplies, r.MessagesSent)
}

// Rate returns 100*num/den rounded to 2 decimal places, or 0 when den is 0.
func Rate(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return math.Round(float64(num)/float64(den)*100*100) / 100
}

// MetricTotals is the window-wide sum over every sender and week, with
// overall rates recomputed from the summed counters.
type MetricTotals struct {
	ConnectionsSent     int     `json:"connections_sent"`
	ConnectionsAccepted int     `json:"connections_accepted"`
	MessagesSent        int     `json:"messages_sent"`
	MessageReplies      int     `json:"message_replies"`
	OpenConversations   int     `json:"open_conversations"`
	Interested          int     `json:"interested"`
	AcceptanceRate      float64 `json:"acceptance_rate"`
	ReplyRate           float64 `json:"reply_rate"`
}

// Summarize folds records into one set of totals. Per-record rates are
// never averaged; the overall rates come from the summed counters.
func Summarize(records []MetricRecord) MetricTotals {
	var t MetricTotals
	for _, r := range records {
		t.ConnectionsSent += r.ConnectionsSent
		t.ConnectionsAccepted += r.ConnectionsAccepted
		t.MessagesSent += r.MessagesSent
		t.MessageReplies += r.MessageReplies
		t.OpenConversations += r.OpenConversations
		t.Interested += r.Interested
	}
	t.AcceptanceRate = Rate(t.ConnectionsAccepted, t.ConnectionsSent)
	t.ReplyRate = Rate(t.MessageReplies, t.MessagesSent)
	return t
}
