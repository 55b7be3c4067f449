package backtest

import "fmt"

// RecoveryError means checkpoint restoration itself failed. It is not
// retryable: retrying would reload the same broken snapshot, so the
// run loop surfaces it immediately.
type RecoveryError struct {
	Key string
	Err error
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("recover from checkpoint %s: %v", e.Key, e.Err)
}

func (e *RecoveryError) Unwrap() error { return e.Err }
