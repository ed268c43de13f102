package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/daniel/reach-sync/internal/domain/sheet/entity"
)

const (
	// headerScanRows bounds how deep header detection looks. Some sheets
	// put a year/title row above the real date header.
	headerScanRows = 5
	// minDateColumns is the least number of date-shaped cells a row must
	// hold to qualify as the header row.
	minDateColumns = 1
)

var (
	monthDayRe = regexp.MustCompile(`^\d{1,2}/\d{1,2}$`)
	fullDateRe = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}$`)
	yearRe     = regexp.MustCompile(`^\d{4}$`)
)

// isDateLabel reports whether s looks like a date header cell
// (month/day, optionally with a year suffix, or ISO).
func isDateLabel(s string) bool {
	s = strings.TrimSpace(s)
	if monthDayRe.MatchString(s) || fullDateRe.MatchString(s) {
		return true
	}
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return true
	}
	return false
}

// isYearLabel reports whether s is a bare 4-digit year.
func isYearLabel(s string) bool {
	return yearRe.MatchString(strings.TrimSpace(s))
}

// parseDateLabel resolves a header cell into a concrete date. Labels
// without a year ("11/14") borrow fallbackYear, which callers derive
// from the sheet's year cell or the target date.
func parseDateLabel(s string, fallbackYear int) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if m := monthDayRe.FindString(s); m != "" {
		parts := strings.SplitN(m, "/", 2)
		month, _ := strconv.Atoi(parts[0])
		day, _ := strconv.Atoi(parts[1])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return time.Time{}, false
		}
		return time.Date(fallbackYear, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
	}
	for _, layout := range []string{"1/2/2006", "1/2/06", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Locator finds the structural landmarks of a destination grid: the
// header row carrying date columns, and the metric rows of a sender
// block.
type Locator struct{}

// LocateHeader scans the first few rows and returns the index of the row
// with the most date-shaped cells. Returns entity.ErrNoHeaderFound when
// no row reaches the minimum.
func (Locator) LocateHeader(g *entity.Grid) (int, error) {
	limit := g.NumRows()
	if limit > headerScanRows {
		limit = headerScanRows
	}

	bestRow, bestCount := -1, 0
	for r := 0; r < limit; r++ {
		count := 0
		for c := 0; c < g.NumCols(); c++ {
			if isDateLabel(g.Cell(r, c)) {
				count++
			}
		}
		if count > bestCount {
			bestRow, bestCount = r, count
		}
	}
	if bestCount < minDateColumns {
		return -1, entity.ErrNoHeaderFound
	}
	return bestRow, nil
}

// MetricRows returns the row indices of the canonical metric rows for a
// sender whose name sits at senderRow. Offsets are fixed; labels in the
// sheet are not consulted.
func (Locator) MetricRows(senderRow int) []int {
	rows := make([]int, entity.MetricRowCount)
	for i := range rows {
		rows[i] = senderRow + i + 1
	}
	return rows
}

// HeaderYear returns the 4-digit year found in the first grid row, or
// fallback when none is present. Sheets conventionally hold the year in
// the top-left corner above the date columns.
func (Locator) HeaderYear(g *entity.Grid, fallback int) int {
	for c := 0; c < g.NumCols(); c++ {
		cell := strings.TrimSpace(g.Cell(0, c))
		if isYearLabel(cell) {
			y, _ := strconv.Atoi(cell)
			return y
		}
	}
	return fallback
}
