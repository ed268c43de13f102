package service

import (
	"context"

	"github.com/daniel/reach-sync/internal/domain/sheet/entity"
)

// Store defines the destination spreadsheet operations reconciliation
// needs. The interface is defined here (consumer) not in the upstream
// package (provider). Rows and columns are 0-indexed; a destination id
// names one worksheet/tab.
type Store interface {
	// LoadGrid returns a full snapshot of the destination's value matrix.
	LoadGrid(ctx context.Context, destID string) (*entity.Grid, error)
	// UpdateCell writes a single value.
	UpdateCell(ctx context.Context, destID string, row, col int, value string) error
	// InsertColumnAfter inserts one empty column immediately after col.
	// Implementations return entity.ErrStructuralConflict when the sheet
	// changed shape since the caller's last read.
	InsertColumnAfter(ctx context.Context, destID string, col int) error
	// SetHeader writes a header label at (row, col).
	SetHeader(ctx context.Context, destID string, row, col int, value string) error
}
