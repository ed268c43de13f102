package entity

// MetricLabels lists the canonical metric rows of a sender block in the
// fixed order they appear below the sender's name row. Row offsets are
// positional: metric i lives at senderRow + i + 1. The order is defined
// by the system and never re-derived from whatever labels a sheet holds.
var MetricLabels = []string{
	"Connections Sent",
	"Connections Accepted",
	"Acceptance Rate",
	"Messages Sent",
	"Message Replies",
	"Reply Rate",
	"Open Conversations",
	"Interested",
}

// MetricRowCount is the size of one sender block below the name row.
var MetricRowCount = len(MetricLabels)
