package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRate(t *testing.T) {
	assert.Equal(t, 27.84, Rate(49, 176))
	assert.Equal(t, 34.78, Rate(16, 46))
	assert.Equal(t, 100.0, Rate(5, 5))
	assert.Equal(t, 0.0, Rate(0, 100))
}

func TestRateZeroDenominator(t *testing.T) {
	assert.Equal(t, 0.0, Rate(10, 0))
	assert.Equal(t, 0.0, Rate(0, 0))
}

func TestSummarizeRecomputesRatesFromTotals(t *testing.T) {
	records := []MetricRecord{
		{ConnectionsSent: 100, ConnectionsAccepted: 10, MessagesSent: 30, MessageReplies: 3, Interested: 1},
		{ConnectionsSent: 76, ConnectionsAccepted: 39, MessagesSent: 16, MessageReplies: 13, OpenConversations: 7},
	}
	for i := range records {
		records[i].ComputeRates()
	}

	got := Summarize(records)

	assert.Equal(t, 176, got.ConnectionsSent)
	assert.Equal(t, 49, got.ConnectionsAccepted)
	assert.Equal(t, 46, got.MessagesSent)
	assert.Equal(t, 16, got.MessageReplies)
	assert.Equal(t, 7, got.OpenConversations)
	assert.Equal(t, 1, got.Interested)

	// Overall rates come from the summed counters, not from averaging
	// the per-record rates
	assert.Equal(t, 27.84, got.AcceptanceRate)
	assert.Equal(t, 34.78, got.ReplyRate)
}

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil)
	assert.Equal(t, MetricTotals{}, got)
}

func TestComputeRates(t *testing.T) {
	rec := MetricRecord{
		ConnectionsSent:     176,
		ConnectionsAccepted: 49,
		MessagesSent:        46,
		MessageReplies:      16,
	}
	rec.ComputeRates()

	assert.Equal(t, 27.84, rec.AcceptanceRate)
	assert.Equal(t, 34.78, rec.ReplyRate)
}
