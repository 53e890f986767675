package sweeper

import "errors"

var (
	ErrInvalidSchedule = errors.New("invalid sweep schedule")
	ErrFailedToListDue = errors.New("failed to list due accounts")
	ErrSweepIncomplete = errors.New("sweep finished with failures")
)
