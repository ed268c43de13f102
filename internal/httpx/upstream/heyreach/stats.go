package heyreach

import (
	"encoding/json"
	"strings"
)

// OverallStats are summed outreach counters for one query window
type OverallStats struct {
	ConnectionsSent     int
	ConnectionsAccepted int
	MessagesSent        int
	MessageReplies      int
	OpenConversations   int
	Interested          int
}

func (s *OverallStats) add(o OverallStats) {
	s.ConnectionsSent += o.ConnectionsSent
	s.ConnectionsAccepted += o.ConnectionsAccepted
	s.MessagesSent += o.MessagesSent
	s.MessageReplies += o.MessageReplies
	s.OpenConversations += o.OpenConversations
	s.Interested += o.Interested
}

// statsResponse covers both shapes the stats endpoint answers with: a
// pre-summed overallStats object, or a byDayStats map of day -> stats.
type statsResponse struct {
	OverallStats map[string]json.RawMessage            `json:"overallStats"`
	ByDayStats   map[string]map[string]json.RawMessage `json:"byDayStats"`
}

func (r *statsResponse) stats() *OverallStats {
	if len(r.OverallStats) > 0 {
		s := extractStats(r.OverallStats)
		return &s
	}

	var total OverallStats
	for _, day := range r.ByDayStats {
		total.add(extractStats(day))
	}
	return &total
}

// Field aliases seen across API versions. Keys are lowercased.
var statFields = []struct {
	aliases []string
	assign  func(*OverallStats, int)
}{
	{
		aliases: []string{"connectionssent", "connectionrequestssent", "invitessent"},
		assign:  func(s *OverallStats, v int) { s.ConnectionsSent = v },
	},
	{
		aliases: []string{"connectionsaccepted", "connectionrequestsaccepted", "invitesaccepted"},
		assign:  func(s *OverallStats, v int) { s.ConnectionsAccepted = v },
	},
	{
		aliases: []string{"messagessent", "messagestarterssent"},
		assign:  func(s *OverallStats, v int) { s.MessagesSent = v },
	},
	{
		aliases: []string{"messagereplies", "messagerepliesreceived", "totalmessagereplies"},
		assign:  func(s *OverallStats, v int) { s.MessageReplies = v },
	},
	{
		aliases: []string{"openconversations", "chats", "totalconversations"},
		assign:  func(s *OverallStats, v int) { s.OpenConversations = v },
	},
	{
		aliases: []string{"interested", "leadsinterested", "totalinterested"},
		assign:  func(s *OverallStats, v int) { s.Interested = v },
	},
}

// extractStats pulls counters out of one stats object, tolerating the
// field-name variants different API versions use. Unknown fields are
// ignored; missing and negative values read as zero.
func extractStats(raw map[string]json.RawMessage) OverallStats {
	lowered := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		lowered[strings.ToLower(k)] = v
	}

	var s OverallStats
	for _, f := range statFields {
		for _, alias := range f.aliases {
			v, ok := lowered[alias]
			if !ok {
				continue
			}
			var n float64
			if err := json.Unmarshal(v, &n); err != nil {
				continue
			}
			if n < 0 {
				n = 0
			}
			f.assign(&s, int(n))
			break
		}
	}
	return s
}
