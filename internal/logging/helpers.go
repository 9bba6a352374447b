package logging

import "time"

// Category helpers so call sites stay one-liners.

// Epoch logs to the epoch category at info level.
func Epoch(format string, args ...interface{}) {
	Get(CategoryEpoch).Info(format, args...)
}

// EpochDebug logs to the epoch category at debug level.
func EpochDebug(format string, args ...interface{}) {
	Get(CategoryEpoch).Debug(format, args...)
}

// Lease logs to the lease category at info level.
func Lease(format string, args ...interface{}) {
	Get(CategoryLease).Info(format, args...)
}

// LeaseDebug logs to the lease category at debug level.
func LeaseDebug(format string, args ...interface{}) {
	Get(CategoryLease).Debug(format, args...)
}

// Ledger logs to the commitment-ledger category at info level.
func Ledger(format string, args ...interface{}) {
	Get(CategoryLedger).Info(format, args...)
}

// Sentinel logs to the sentinel category at info level.
func Sentinel(format string, args ...interface{}) {
	Get(CategorySentinel).Info(format, args...)
}

// Succession logs to the succession category at info level.
func Succession(format string, args ...interface{}) {
	Get(CategorySuccession).Info(format, args...)
}

// SuccessionDebug logs to the succession category at debug level.
func SuccessionDebug(format string, args ...interface{}) {
	Get(CategorySuccession).Debug(format, args...)
}

// Runlog logs to the runlog category at info level.
func Runlog(format string, args ...interface{}) {
	Get(CategoryRunlog).Info(format, args...)
}

// Boot logs to the boot category at info level.
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// Timer measures the duration of an operation for performance logging.
type Timer struct {
	category Category
	name     string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, name string) *Timer {
	return &Timer{category: category, name: name, start: time.Now()}
}

// Stop logs the elapsed time at debug level.
func (t *Timer) Stop() {
	Get(t.category).Debug("%s took %v", t.name, time.Since(t.start))
}
