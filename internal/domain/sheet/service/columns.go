package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/daniel/reach-sync/internal/domain/sheet/entity"
)

// DefaultDayTolerance is how far apart (in days, same month) a computed
// week-ending date and an existing header column may be and still be
// treated as the same week. Sheets are hand-labeled and occasionally
// disagree with the provider's week boundary by a day or two.
const DefaultDayTolerance = 3

// HeaderKey formats the canonical column key for a date: month/day with
// no leading zeros.
func HeaderKey(d time.Time) string {
	return fmt.Sprintf("%d/%d", int(d.Month()), d.Day())
}

// ColumnScheduler resolves week-ending dates to header columns, creating
// columns when absent. Existing columns are never moved or reordered.
type ColumnScheduler struct {
	store     Store
	tolerance int
}

// NewColumnScheduler creates a scheduler. toleranceDays <= 0 selects
// DefaultDayTolerance.
func NewColumnScheduler(store Store, toleranceDays int) *ColumnScheduler {
	if toleranceDays <= 0 {
		toleranceDays = DefaultDayTolerance
	}
	return &ColumnScheduler{store: store, tolerance: toleranceDays}
}

// Find looks up the column for weekEnd in the header row: first an exact
// month/day key match, then the nearest date column in the same month
// within the day tolerance. Returns (-1, false) when nothing qualifies.
func (s *ColumnScheduler) Find(g *entity.Grid, headerRow int, weekEnd time.Time) (int, bool) {
	key := HeaderKey(weekEnd)
	year := (Locator{}).HeaderYear(g, weekEnd.Year())

	bestCol, bestDelta := -1, s.tolerance+1
	for c := 0; c < g.NumCols(); c++ {
		cell := strings.TrimSpace(g.Cell(headerRow, c))
		if !isDateLabel(cell) {
			continue
		}
		if cell == key {
			return c, true
		}
		d, ok := parseDateLabel(cell, year)
		if !ok || d.Month() != weekEnd.Month() {
			continue
		}
		delta := d.Day() - weekEnd.Day()
		if delta < 0 {
			delta = -delta
		}
		if delta <= s.tolerance && delta < bestDelta {
			bestCol, bestDelta = c, delta
		}
	}
	if bestCol >= 0 {
		return bestCol, true
	}
	return -1, false
}

// LastDateColumn returns the index of the right-most date-shaped cell in
// the header row, or -1 when there is none. New columns are appended
// immediately after it, which keeps them ahead of any trailing non-date
// columns (notes, totals).
func (s *ColumnScheduler) LastDateColumn(g *entity.Grid, headerRow int) int {
	last := -1
	for c := 0; c < g.NumCols(); c++ {
		if isDateLabel(g.Cell(headerRow, c)) {
			last = c
		}
	}
	return last
}

// Append creates a new column for weekEnd after the last date column and
// writes its header label, mutating both the remote sheet and the local
// snapshot. Callers must still refresh the grid from the store before
// doing further row/column math against it, and must append batches of
// new dates in ascending order to keep the header monotonic.
func (s *ColumnScheduler) Append(ctx context.Context, destID string, g *entity.Grid, headerRow int, weekEnd time.Time) (int, error) {
	anchor := s.LastDateColumn(g, headerRow)
	if anchor < 0 {
		return -1, entity.ErrNoHeaderFound
	}

	if err := s.store.InsertColumnAfter(ctx, destID, anchor); err != nil {
		return -1, err
	}
	newCol := anchor + 1
	key := HeaderKey(weekEnd)
	if err := s.store.SetHeader(ctx, destID, headerRow, newCol, key); err != nil {
		return -1, fmt.Errorf("writing header %q: %w", key, err)
	}

	g.InsertColAfter(anchor)
	g.SetCell(headerRow, newCol, key)
	return newCol, nil
}
