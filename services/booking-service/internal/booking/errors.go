package booking

import "errors"

// Typed failures reported to callers. Anything else coming out of the
// service is an infrastructure error and arrives wrapped.
var (
	// ErrRequesterNotFound: the requester id does not resolve to a user
	// with the requester role. No write is performed.
	ErrRequesterNotFound = errors.New("requester not found")

	// ErrFixerNotFound: the fixer id does not resolve to a user with the
	// fixer role. No write is performed.
	ErrFixerNotFound = errors.New("fixer not found")

	// ErrDuplicateAppointment: an active appointment already occupies the
	// conflict key. Returned both by the fast-path pre-check and by the
	// store's unique guard when two creates race.
	ErrDuplicateAppointment = errors.New("an active appointment already exists for this slot")

	// ErrAppointmentNotFound: the appointment id has no record.
	ErrAppointmentNotFound = errors.New("appointment not found")
)
