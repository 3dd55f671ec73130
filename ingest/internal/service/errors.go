package service

import "fmt"

// StorageError reports that the event store failed. The event was not
// persisted; the caller should treat the operation as failed and may retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// LimitError reports a query limit outside [MinLimit, MaxLimit].
type LimitError struct {
	Limit int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("limit must be between %d and %d, got %d", MinLimit, MaxLimit, e.Limit)
}
