package contract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/datalens/schema"
)

// ErrEmptyInput is returned when an upload has no content at all.
var ErrEmptyInput = errors.New("empty file")

// ErrNoRows is returned when a file parses into a table without rows.
var ErrNoRows = errors.New("no rows parsed from file")

// InputError is a structural problem with the caller's input. No record is produced.
type InputError struct {
	Msg string
	Err error
}

func (e *InputError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// NewInputError wraps err as an InputError with a message.
func NewInputError(msg string, err error) error {
	return &InputError{Msg: msg, Err: err}
}

// IsInputError reports whether err is, or wraps, an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// DetectionGap means no usable date or target column was found.
type DetectionGap struct {
	Reason string
}

func (e *DetectionGap) Error() string { return e.Reason }

// InsufficientData means a frequency produced too few buckets to fit.
type InsufficientData struct {
	Frequency schema.Frequency
	Points    int
}

func (e *InsufficientData) Error() string {
	return fmt.Sprintf("insufficient_points_%s=%d", strings.ToLower(string(e.Frequency)), e.Points)
}

// NumericFailure is an unexpected failure inside fitting or aggregation.
type NumericFailure struct {
	Err error
}

func (e *NumericFailure) Error() string {
	return fmt.Sprintf("%s: %v", schema.ReasonForecastError, e.Err)
}

func (e *NumericFailure) Unwrap() error { return e.Err }

// ReasonOf converts a non-fatal forecasting error into its reason code.
func ReasonOf(err error) string {
	if err == nil {
		return ""
	}
	var gap *DetectionGap
	var short *InsufficientData
	var num *NumericFailure
	switch {
	case errors.As(err, &gap):
		return gap.Error()
	case errors.As(err, &short):
		return short.Error()
	case errors.As(err, &num):
		return num.Error()
	default:
		return fmt.Sprintf("%s: %v", schema.ReasonForecastError, err)
	}
}
