// Package errors defines the typed error taxonomy of the forecasting core.
//
// Every failure the core can surface belongs to one of four categories so
// callers can distinguish "bad input" (DataError), "training didn't converge"
// (ConvergenceError), "model isn't good enough yet" (QualityGateFailure) and
// "can't forecast right now" (ForecastError) without string matching.
package errors

import (
	"errors"
	"fmt"
)

// Category identifies the failure class of an Error.
type Category string

const (
	CategoryData        Category = "data"
	CategoryConvergence Category = "convergence"
	CategoryForecast    Category = "forecast"
	CategoryQualityGate Category = "quality_gate"
)

// Error codes for DataError.
const (
	CodeInsufficientHistory = "INSUFFICIENT_HISTORY"
	CodeEmptyHistory        = "EMPTY_HISTORY"
	CodeUnorderedDates      = "UNORDERED_DATES"
	CodeDuplicateDate       = "DUPLICATE_DATE"
	CodeNegativeCount       = "NEGATIVE_COUNT"
	CodeNonContiguousDates  = "NON_CONTIGUOUS_DATES"
	CodeMalformedSchema     = "MALFORMED_SCHEMA"
	CodeInvalidConfig       = "INVALID_CONFIG"
)

// Error codes for ConvergenceError.
const (
	CodeOptimizerFailed     = "OPTIMIZER_FAILED"
	CodeNonFiniteLikelihood = "NON_FINITE_LIKELIHOOD"
	CodeTrainingCancelled   = "TRAINING_CANCELLED"
)

// Error codes for ForecastError.
const (
	CodeInvalidHorizon    = "INVALID_HORIZON"
	CodeMissingParameters = "MISSING_PARAMETERS"
	CodeCorruptParameters = "CORRUPT_PARAMETERS"
	CodeInsufficientTail  = "INSUFFICIENT_TAIL"
)

// Error codes for QualityGateFailure.
const (
	CodeGateFailed = "GATE_FAILED"
)

// Error is a structured, inspectable error carried through the core.
type Error struct {
	Category Category    `json:"category"`
	Code     string      `json:"code"`
	Message  string      `json:"message"`
	Details  interface{} `json:"details,omitempty"`
	Err      error       `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two core errors on category and code, so sentinel values built
// with the constructors below work with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Category == other.Category && e.Code == other.Code
}

// New creates a core error with the given category and code.
func New(category Category, code, message string) *Error {
	return &Error{Category: category, Code: code, Message: message}
}

// NewData creates a DataError.
func NewData(code, message string) *Error {
	return New(CategoryData, code, message)
}

// NewConvergence creates a ConvergenceError.
func NewConvergence(code, message string) *Error {
	return New(CategoryConvergence, code, message)
}

// NewForecast creates a ForecastError.
func NewForecast(code, message string) *Error {
	return New(CategoryForecast, code, message)
}

// NewQualityGate creates a QualityGateFailure.
func NewQualityGate(code, message string) *Error {
	return New(CategoryQualityGate, code, message)
}

// WithDetails returns a copy of the error carrying structured details.
func (e *Error) WithDetails(details interface{}) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

// Wrap returns a copy of the error wrapping an underlying cause.
func (e *Error) Wrap(err error) *Error {
	clone := *e
	clone.Err = err
	return &clone
}

// Predefined errors for common scenarios. Use WithDetails/Wrap to attach
// context; Is-comparison ignores details.
var (
	ErrInsufficientHistory = NewData(CodeInsufficientHistory, "not enough history for the configured lag order")
	ErrEmptyHistory        = NewData(CodeEmptyHistory, "history contains no records")
	ErrUnorderedDates      = NewData(CodeUnorderedDates, "record dates are not strictly increasing")
	ErrDuplicateDate       = NewData(CodeDuplicateDate, "history contains duplicate calendar days")
	ErrNegativeCount       = NewData(CodeNegativeCount, "visit count is negative")
	ErrNonContiguousDates  = NewData(CodeNonContiguousDates, "history has date gaps and the gap policy rejects them")
	ErrMalformedSchema     = NewData(CodeMalformedSchema, "record fails schema validation")

	ErrOptimizerFailed     = NewConvergence(CodeOptimizerFailed, "likelihood optimization failed")
	ErrNonFiniteLikelihood = NewConvergence(CodeNonFiniteLikelihood, "log-likelihood is not finite")
	ErrTrainingCancelled   = NewConvergence(CodeTrainingCancelled, "training cancelled before any usable solution")

	ErrInvalidHorizon    = NewForecast(CodeInvalidHorizon, "forecast horizon must be between 1 and 30 days")
	ErrMissingParameters = NewForecast(CodeMissingParameters, "no fitted model parameters supplied")
	ErrCorruptParameters = NewForecast(CodeCorruptParameters, "model parameters failed validation")
	ErrInsufficientTail  = NewForecast(CodeInsufficientTail, "recent history window is shorter than the model order")

	ErrGateFailed = NewQualityGate(CodeGateFailed, "one or more quality gates failed")
)

// CategoryOf reports the category of err, or an empty Category when err is
// not a core error.
func CategoryOf(err error) Category {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ""
}

// IsData reports whether err is a DataError.
func IsData(err error) bool { return CategoryOf(err) == CategoryData }

// IsConvergence reports whether err is a ConvergenceError.
func IsConvergence(err error) bool { return CategoryOf(err) == CategoryConvergence }

// IsForecast reports whether err is a ForecastError.
func IsForecast(err error) bool { return CategoryOf(err) == CategoryForecast }

// IsQualityGate reports whether err is a QualityGateFailure.
func IsQualityGate(err error) bool { return CategoryOf(err) == CategoryQualityGate }
