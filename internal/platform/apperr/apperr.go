package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for the caller. It decides the HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Status maps the kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Machine-readable codes carried in the error envelope.
const (
	CodeValidation        = "validation_failed"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeNotFound          = "not_found"
	CodeInternal          = "internal"
	CodeInvalidTransition = "invalid_transition"
	CodeOutsideSchedule   = "outside_schedule"
	CodeFullyBooked       = "fully_booked"
	CodeDoctorInactive    = "doctor_inactive"
	CodeSlotAlreadyBooked = "slot_already_booked"
	CodePaymentExceedsDue = "payment_exceeds_due"
	CodeBillHasPayments   = "bill_has_payments"
	CodeTotalBelowPaid    = "total_below_paid"
	CodeDuplicate         = "duplicate"
)

// Error is the structured failure every core operation returns.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind and code so callers can compare against the exported
// sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// With returns a copy carrying an extra detail entry.
func (e *Error) With(key string, value interface{}) *Error {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Details: details, Err: e.Err}
}

// Wrap returns a copy with err as the underlying cause.
func (e *Error) Wrap(err error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Details: e.Details, Err: err}
}

func newErr(kind Kind, code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return newErr(KindValidation, CodeValidation, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newErr(KindNotFound, CodeNotFound, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newErr(KindForbidden, CodeForbidden, format, args...)
}

func Unauthorized(format string, args ...interface{}) *Error {
	return newErr(KindUnauthorized, CodeUnauthorized, format, args...)
}

func Conflict(code, format string, args ...interface{}) *Error {
	return newErr(KindConflict, code, format, args...)
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal server error", Err: err}
}

// Sentinels for the distinguished scheduling and ledger outcomes.
var (
	ErrForbidden         = Forbidden("forbidden")
	ErrInvalidTransition = Conflict(CodeInvalidTransition, "status transition not allowed")
	ErrOutsideSchedule   = Conflict(CodeOutsideSchedule, "selected time is outside doctor schedule")
	ErrFullyBooked       = Conflict(CodeFullyBooked, "doctor is fully booked for this day")
	ErrDoctorInactive    = Conflict(CodeDoctorInactive, "doctor is inactive")
	ErrSlotAlreadyBooked = Conflict(CodeSlotAlreadyBooked, "this time slot is already booked")
	ErrPaymentExceedsDue = Conflict(CodePaymentExceedsDue, "payment exceeds due amount")
	ErrBillHasPayments   = Conflict(CodeBillHasPayments, "bill has recorded payments and cannot be deleted")
	ErrTotalBelowPaid    = Conflict(CodeTotalBelowPaid, "bill total would fall below the amount already paid")
)

// As extracts the structured error from err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for anything unstructured.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}
