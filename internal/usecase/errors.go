package usecase

import "errors"

// Error kinds. Every usecase error unwraps to exactly one of these.
var (
	ErrValidation        = errors.New("validation error")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrExhaustedCapacity = errors.New("exhausted capacity")
	ErrInventory         = errors.New("inventory error")
)

// Error is a usecase failure of a given kind.
type Error struct {
	Kind    error
	Message string
}

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

var (
	ErrInvalidDateFormat     = newError(ErrValidation, "invalid date format, use YYYY-MM-DD")
	ErrDateInPast            = newError(ErrValidation, "appointment date is in the past")
	ErrDateBeyondHorizon     = newError(ErrValidation, "appointment date is beyond the booking horizon")
	ErrInvalidQueueRange     = newError(ErrValidation, "queue number range must satisfy 1 <= min <= max")
	ErrInvalidStatus         = newError(ErrValidation, "unknown appointment status")
	ErrEmailAlreadyExists    = newError(ErrValidation, "email is already registered")
	ErrPatientAlreadyBooked  = newError(ErrConflict, "patient already has an appointment on this date within the range")
	ErrAppointmentNotCreated = newError(ErrConflict, "appointment is no longer in CREATED status")
	ErrBookingSlotBusy       = newError(ErrConflict, "booking slot is busy, try again")
	ErrAppointmentNotFound   = newError(ErrNotFound, "appointment not found")
	ErrDoctorNotFound        = newError(ErrNotFound, "doctor not found")
	ErrNoNurseAvailable      = newError(ErrNotFound, "no active nurse available")
	ErrUserNotFound          = newError(ErrNotFound, "user not found")
	ErrAuditLogNotFound      = newError(ErrNotFound, "audit log not found")
	ErrNotAppointmentOwner   = newError(ErrForbidden, "appointment does not belong to you")
	ErrRoleNotAllowed        = newError(ErrForbidden, "role is not allowed to perform this operation")
	ErrQueueExhausted        = newError(ErrExhaustedCapacity, "no free queue number in range")
	ErrQueueContended        = newError(ErrExhaustedCapacity, "queue numbers in range were taken concurrently")
	ErrNoDoctorAvailable     = newError(ErrExhaustedCapacity, "no doctor available on this date")
	ErrMedicineNotFound      = newError(ErrInventory, "medicine not found")
	ErrInsufficientStock     = newError(ErrInventory, "insufficient stock")
	ErrInvalidAmount         = newError(ErrInventory, "amount must be at least 1")
)
