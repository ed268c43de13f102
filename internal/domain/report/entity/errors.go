package entity

import "errors"

// Domain errors for report runs
var (
	ErrInvalidRange  = errors.New("start date is after end date")
	ErrNoDestination = errors.New("no destination resolved for sender")
	ErrNoSenders     = errors.New("no senders configured or discovered")
)
