package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when an entity is missing or not visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller lacks a capability on an entity it can see.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthenticated is returned when no caller identity is present.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrAlreadyRegistered is returned when the student already holds an active registration.
	ErrAlreadyRegistered = errors.New("already registered for this event")

	// ErrCapacityExceeded is returned when an event has no remaining seats.
	ErrCapacityExceeded = errors.New("event is fully booked")

	// ErrNotApproved is returned when registering for an event an admin has not approved.
	ErrNotApproved = errors.New("event is not approved")

	// ErrEventClosed is returned when the event is cancelled, completed or already started.
	ErrEventClosed = errors.New("event is closed for registration")

	// ErrTooLate is returned when cancelling a registration after the event started.
	ErrTooLate = errors.New("event has already started")

	// ErrInvalidTransition is returned when a status change is not allowed from the current state.
	ErrInvalidTransition = errors.New("status transition not allowed")

	// ErrLastAdmin is returned when an operation would leave the system without an admin.
	ErrLastAdmin = errors.New("cannot remove the last admin")

	// ErrDuplicateAccount is returned when a username or email is already taken.
	ErrDuplicateAccount = errors.New("username or email already in use")

	// ErrInvalidCredentials is returned on any failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var domainErrors = []error{
	ErrNotFound, ErrForbidden, ErrUnauthenticated, ErrAlreadyRegistered, ErrCapacityExceeded,
	ErrNotApproved, ErrEventClosed, ErrTooLate, ErrInvalidTransition, ErrLastAdmin,
	ErrDuplicateAccount, ErrInvalidCredentials,
}

// FieldViolation is a single invalid input field.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every violated field of one request.
type ValidationError struct {
	Violations []FieldViolation
}

// Add records a violation.
func (v *ValidationError) Add(field, message string) {
	v.Violations = append(v.Violations, FieldViolation{Field: field, Message: message})
}

// OrNil returns v as an error when it holds violations, nil otherwise.
func (v *ValidationError) OrNil() error {
	if v == nil || len(v.Violations) == 0 {
		return nil
	}
	return v
}

// Fields renders the violations as a field -> message map.
func (v *ValidationError) Fields() map[string]string {
	out := make(map[string]string, len(v.Violations))
	for _, f := range v.Violations {
		if _, seen := out[f.Field]; !seen {
			out[f.Field] = f.Message
		}
	}
	return out
}

func (v *ValidationError) Error() string {
	parts := make([]string, 0, len(v.Violations))
	for _, f := range v.Violations {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// PersistenceError wraps a storage failure. The original cause is kept for
// logging but never shown to end users.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: persistence failure: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsDomain reports whether err is one of the user-facing domain errors.
func IsDomain(err error) bool {
	if err == nil {
		return false
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return true
	}
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return true
		}
	}
	return false
}

// Persistence passes domain errors through untouched and wraps anything else
// in a PersistenceError tagged with op.
func Persistence(op string, err error) error {
	if err == nil || IsDomain(err) {
		return err
	}
	var perr *PersistenceError
	if errors.As(err, &perr) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// Stable error codes returned to clients.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyRegistered  = "ALREADY_REGISTERED"
	CodeCapacityExceeded   = "CAPACITY_EXCEEDED"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeLastAdmin          = "LAST_ADMIN"
	CodeDuplicateEntry     = "DUPLICATE_ENTRY"
	CodeNotApproved        = "EVENT_NOT_APPROVED"
	CodeEventClosed        = "EVENT_CLOSED"
	CodeTooLate            = "TOO_LATE"
	CodeInternalError      = "INTERNAL_ERROR"
)

var errorCodes = map[error]string{
	ErrNotFound:           CodeNotFound,
	ErrForbidden:          CodeForbidden,
	ErrUnauthenticated:    CodeUnauthorized,
	ErrAlreadyRegistered:  CodeAlreadyRegistered,
	ErrCapacityExceeded:   CodeCapacityExceeded,
	ErrNotApproved:        CodeNotApproved,
	ErrEventClosed:        CodeEventClosed,
	ErrTooLate:            CodeTooLate,
	ErrInvalidTransition:  CodeInvalidTransition,
	ErrLastAdmin:          CodeLastAdmin,
	ErrDuplicateAccount:   CodeDuplicateEntry,
	ErrInvalidCredentials: CodeInvalidCredentials,
}

// Code returns the client-facing code for err. Anything that is not a
// domain error is reported as CodeInternalError.
func Code(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return CodeValidationFailed
	}
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return errorCodes[d]
		}
	}
	return CodeInternalError
}
