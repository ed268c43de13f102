package entity

import "errors"

// Domain errors for destination grids
var (
	ErrNoHeaderFound      = errors.New("no header row with date columns found")
	ErrStructuralConflict = errors.New("grid changed since last read")
	ErrWorksheetNotFound  = errors.New("worksheet not found")
	ErrInvalidWritePolicy = errors.New("invalid write policy")
)
