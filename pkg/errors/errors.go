package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Taxonomy roots plus the operation-specific failures of the scheduling
// engine. Consistency errors indicate a broken internal invariant; they are
// logged with context and surfaced without crashing the process.
var (
	ErrValidation  = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrNotEligible = New("NOT_ELIGIBLE", http.StatusForbidden, "not eligible for this booking")
	ErrConflict    = New("CONFLICT", http.StatusConflict, "conflict")
	ErrNotFound    = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConsistency = New("CONSISTENCY_ERROR", http.StatusInternalServerError, "internal state inconsistency")

	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid username or password")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	ErrNoSlotAvailable    = New("NO_SLOT_AVAILABLE", http.StatusConflict, "no suitable time slot available")
	ErrDuplicateBooking   = New("DUPLICATE_BOOKING", http.StatusConflict, "an active appointment with this staff member already exists")
	ErrSlotOverlap        = New("SLOT_OVERLAP", http.StatusConflict, "time slot overlaps an existing slot")
	ErrPastStart          = New("PAST_START", http.StatusBadRequest, "time slot must start in the future")
	ErrSlotBooked         = New("SLOT_BOOKED", http.StatusConflict, "time slot is currently booked")
	ErrInvalidTransition  = New("INVALID_TRANSITION", http.StatusConflict, "invalid appointment status transition")
	ErrNotPending         = New("NOT_PENDING", http.StatusConflict, "appointment is not pending")
	ErrStaffBusy          = New("STAFF_BUSY", http.StatusConflict, "staff member already has a consultation in progress")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Is reports whether err carries the same code as target.
func Is(err error, target *Error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return target != nil && e.Code == target.Code
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
