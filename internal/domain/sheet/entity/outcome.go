package entity

// OutcomeStatus classifies what reconciliation did for one sender.
type OutcomeStatus string

const (
	// OutcomeUpdated means the sender was matched and its cells were
	// attempted; CellsWritten may be zero when every target cell already
	// held a value under the only-if-empty policy.
	OutcomeUpdated OutcomeStatus = "updated"
	// OutcomeSkippedNoColumn means the sender was matched but none of its
	// weeks resolved to a header column and none could be created.
	OutcomeSkippedNoColumn OutcomeStatus = "skipped-no-column-match"
	// OutcomeSkippedNoData means the sender was matched but had no
	// metric records for the requested window.
	OutcomeSkippedNoData OutcomeStatus = "skipped-no-data"
	// OutcomeNotFound means the sender could not be located in the grid
	// (or its destination), so nothing was attempted.
	OutcomeNotFound OutcomeStatus = "not-found"
)

// ReconciliationOutcome reports the per-sender result of one
// reconciliation pass against a destination grid.
type ReconciliationOutcome struct {
	SenderID       int64         `json:"sender_id"`
	SenderName     string        `json:"sender_name"`
	Status         OutcomeStatus `json:"status"`
	MatchTier      string        `json:"match_tier,omitempty"`
	MatchedLabel   string        `json:"matched_label,omitempty"`
	CellsWritten   int           `json:"cells_written"`
	ColumnsCreated int           `json:"columns_created"`
	Error          string        `json:"error,omitempty"`
}
