package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniel/reach-sync/internal/domain/sheet/entity"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestHeaderKeyNoLeadingZeros(t *testing.T) {
	assert.Equal(t, "3/5", HeaderKey(date(2025, time.March, 5)))
	assert.Equal(t, "11/21", HeaderKey(date(2025, time.November, 21)))
}

func headerGrid() *entity.Grid {
	return entity.NewGrid([][]string{
		{"2025"},
		{"", "11/7", "11/14", "11/21", "Notes"},
	})
}

func TestFindExactKey(t *testing.T) {
	s := NewColumnScheduler(nil, 0)

	col, ok := s.Find(headerGrid(), 1, date(2025, time.November, 21))
	require.True(t, ok)
	assert.Equal(t, 3, col)
}

func TestFindWithinTolerance(t *testing.T) {
	s := NewColumnScheduler(nil, 0)
	g := entity.NewGrid([][]string{
		{"2025"},
		{"", "11/19", "11/22"},
	})

	// 11/22 is one day off the target, 11/19 is two; nearest wins
	col, ok := s.Find(g, 1, date(2025, time.November, 21))
	require.True(t, ok)
	assert.Equal(t, 2, col)
}

func TestFindRejectsBeyondTolerance(t *testing.T) {
	s := NewColumnScheduler(nil, 0)
	g := entity.NewGrid([][]string{
		{"2025"},
		{"", "11/25"},
	})

	_, ok := s.Find(g, 1, date(2025, time.November, 21))
	assert.False(t, ok)
}

func TestFindNeverCrossesMonths(t *testing.T) {
	s := NewColumnScheduler(nil, 0)
	g := entity.NewGrid([][]string{
		{"2025"},
		{"", "12/1"},
	})

	// November 30 and December 1 are adjacent days but different weeks
	// on a month-keyed sheet
	_, ok := s.Find(g, 1, date(2025, time.November, 30))
	assert.False(t, ok)
}

func TestLastDateColumnSkipsTrailingNotes(t *testing.T) {
	s := NewColumnScheduler(nil, 0)
	assert.Equal(t, 3, s.LastDateColumn(headerGrid(), 1))

	noDates := entity.NewGrid([][]string{{"Name", "Notes"}})
	assert.Equal(t, -1, s.LastDateColumn(noDates, 0))
}

func TestAppendInsertsBeforeTrailingColumns(t *testing.T) {
	store := newFakeStore("ws", [][]string{
		{"2025"},
		{"", "11/7", "11/14", "11/21", "Notes"},
		{"Corinne Kazoleas", "", "", "", "summary"},
	})
	s := NewColumnScheduler(store, 0)

	g, err := store.LoadGrid(context.Background(), "ws")
	require.NoError(t, err)

	col, err := s.Append(context.Background(), "ws", g, 1, date(2025, time.November, 28))
	require.NoError(t, err)
	assert.Equal(t, 4, col)

	// Remote sheet: new header cell written, Notes pushed right
	assert.Equal(t, "11/28", store.cell("ws", 1, 4))
	assert.Equal(t, "Notes", store.cell("ws", 1, 5))
	assert.Equal(t, "summary", store.cell("ws", 2, 5))

	// Local snapshot mirrors the mutation
	assert.Equal(t, "11/28", g.Cell(1, 4))
	assert.Equal(t, "Notes", g.Cell(1, 5))
}

func TestAppendSurfacesStructuralConflict(t *testing.T) {
	store := newFakeStore("ws", [][]string{
		{"", "11/7"},
	})
	store.conflicts = 1
	s := NewColumnScheduler(store, 0)

	g, err := store.LoadGrid(context.Background(), "ws")
	require.NoError(t, err)

	_, err = s.Append(context.Background(), "ws", g, 0, date(2025, time.November, 14))
	assert.ErrorIs(t, err, entity.ErrStructuralConflict)
}
