package analytics

import "fmt"

// InvalidArgumentError reports a malformed request: unknown granularity
// token, inverted range. Never worth retrying.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return "invalid argument: " + e.Reason
}

// NegativeEnergyDeltaError reports a cumulative counter that decreased
// within a query window, which means a meter reset or out-of-order data.
// The affected query is aborted rather than returning a corrupted series.
type NegativeEnergyDeltaError struct {
	Date           string // local calendar date, empty for range queries
	FirstTimestamp int64  // unix ms of the earlier boundary sample
	LastTimestamp  int64  // unix ms of the later boundary sample
	FirstKwh       float64
	LastKwh        float64
}

func (e *NegativeEnergyDeltaError) Error() string {
	if e.Date != "" {
		return fmt.Sprintf("negative energy delta on %s: counter went %.3f -> %.3f",
			e.Date, e.FirstKwh, e.LastKwh)
	}
	return fmt.Sprintf("negative energy delta between %d and %d: counter went %.3f -> %.3f",
		e.FirstTimestamp, e.LastTimestamp, e.FirstKwh, e.LastKwh)
}

// InsufficientDataError reports that the range held fewer valid samples
// than a derived statistic needs.
type InsufficientDataError struct {
	Needed int
	Got    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need %d valid samples, got %d", e.Needed, e.Got)
}
