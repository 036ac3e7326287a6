package calculation

import (
	"errors"
	"fmt"

	"github.com/rpgo/trust-solvency/pkg/dateutil"
)

// Sentinel errors, for use with errors.Is. Every structured error below unwraps to one of them.
// All four abort the run: there is no retry and no default substitution.
var (
	// ErrDataGap is returned when interpolation has fewer than two anchor points.
	ErrDataGap = errors.New("data gap")

	// ErrMalformedBucket is returned when an age bucket label has no integer starting age.
	ErrMalformedBucket = errors.New("malformed age bucket")

	// ErrMisalignedSeries is returned when a month inside the window lacks a required field.
	ErrMisalignedSeries = errors.New("misaligned series")

	// ErrDegenerateInput is returned for zero workers or a zero target withdraw rate.
	ErrDegenerateInput = errors.New("degenerate input")
)

// DataGapError reports which series could not be anchored.
type DataGapError struct {
	Series  string
	Anchors int
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("%s: %s has %d anchor point(s), need at least 2", ErrDataGap, e.Series, e.Anchors)
}

func (e *DataGapError) Unwrap() error { return ErrDataGap }

// MalformedBucketError carries the label that failed to parse.
type MalformedBucketError struct {
	Year  int
	Label string
}

func (e *MalformedBucketError) Error() string {
	return fmt.Sprintf("%s: %q in year %d", ErrMalformedBucket, e.Label, e.Year)
}

func (e *MalformedBucketError) Unwrap() error { return ErrMalformedBucket }

// MisalignedSeriesError names the first month and field that is missing or out of order.
type MisalignedSeriesError struct {
	Month  dateutil.Month
	Field  string
	Reason string
}

func (e *MisalignedSeriesError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "missing"
	}
	if e.Month.IsZero() {
		return fmt.Sprintf("%s: %s %s", ErrMisalignedSeries, e.Field, reason)
	}
	return fmt.Sprintf("%s: %s %s at %s", ErrMisalignedSeries, e.Field, reason, e.Month)
}

func (e *MisalignedSeriesError) Unwrap() error { return ErrMisalignedSeries }

// DegenerateInputError reports the month and quantity that made the policy undefined.
type DegenerateInputError struct {
	Month dateutil.Month
	Field string
}

func (e *DegenerateInputError) Error() string {
	if e.Month.IsZero() {
		return fmt.Sprintf("%s: %s is zero", ErrDegenerateInput, e.Field)
	}
	return fmt.Sprintf("%s: %s is zero at %s", ErrDegenerateInput, e.Field, e.Month)
}

func (e *DegenerateInputError) Unwrap() error { return ErrDegenerateInput }
