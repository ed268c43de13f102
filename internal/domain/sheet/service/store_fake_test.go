package service

import (
	"context"
	"fmt"

	"github.com/daniel/reach-sync/internal/domain/sheet/entity"
)

// fakeStore is an in-memory Store. Worksheets are plain cell matrices;
// LoadGrid hands out deep copies so snapshot staleness behaves like the
// real backend.
type fakeStore struct {
	sheets    map[string][][]string
	conflicts int // InsertColumnAfter calls to fail with a structural conflict
	inserts   int
	writes    int
}

func newFakeStore(destID string, rows [][]string) *fakeStore {
	return &fakeStore{sheets: map[string][][]string{destID: rows}}
}

func (f *fakeStore) LoadGrid(_ context.Context, destID string) (*entity.Grid, error) {
	rows, ok := f.sheets[destID]
	if !ok {
		return nil, fmt.Errorf("worksheet %q: %w", destID, entity.ErrWorksheetNotFound)
	}
	cp := make([][]string, len(rows))
	for i, r := range rows {
		cp[i] = append([]string(nil), r...)
	}
	return entity.NewGrid(cp), nil
}

func (f *fakeStore) UpdateCell(_ context.Context, destID string, row, col int, value string) error {
	rows := f.sheets[destID]
	for len(rows) <= row {
		rows = append(rows, nil)
	}
	for len(rows[row]) <= col {
		rows[row] = append(rows[row], "")
	}
	rows[row][col] = value
	f.sheets[destID] = rows
	f.writes++
	return nil
}

func (f *fakeStore) SetHeader(ctx context.Context, destID string, row, col int, value string) error {
	return f.UpdateCell(ctx, destID, row, col, value)
}

func (f *fakeStore) InsertColumnAfter(_ context.Context, destID string, col int) error {
	if f.conflicts > 0 {
		f.conflicts--
		return entity.ErrStructuralConflict
	}
	rows := f.sheets[destID]
	for i, r := range rows {
		if len(r) > col+1 {
			r = append(r, "")
			copy(r[col+2:], r[col+1:])
			r[col+1] = ""
			rows[i] = r
		}
	}
	f.sheets[destID] = rows
	f.inserts++
	return nil
}

func (f *fakeStore) cell(destID string, row, col int) string {
	rows := f.sheets[destID]
	if row >= len(rows) || col >= len(rows[row]) {
		return ""
	}
	return rows[row][col]
}
