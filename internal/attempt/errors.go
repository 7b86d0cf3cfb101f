package attempt

import "errors"

var (
	// ErrAlreadyStarted rejects a second start for a pair with a live
	// attempt. Idempotent start is deliberately not supported: accepting
	// it would reset the deadline.
	ErrAlreadyStarted = errors.New("attempt already started")

	// ErrAlreadyCompleted rejects a start when a durable result already
	// exists for the pair.
	ErrAlreadyCompleted = errors.New("exam already completed")

	// ErrAlreadySubmitted is returned for a repeat submit when the final
	// result is no longer held in memory.
	ErrAlreadySubmitted = errors.New("attempt already submitted")

	// ErrNotInProgress is returned when no live attempt exists for the pair.
	ErrNotInProgress = errors.New("attempt not in progress")

	// ErrPastDeadline rejects answer updates after the deadline, whether or
	// not the deadline timer has fired yet.
	ErrPastDeadline = errors.New("attempt deadline has passed")

	// ErrExamNotAvailable rejects a start outside the exam's scheduled
	// window or for an unpublished exam.
	ErrExamNotAvailable = errors.New("exam is not available")

	// ErrMisconfigured wraps configuration problems (zero total marks,
	// unusable definition) discovered at scoring time. The attempt stays
	// in progress so a corrected manual retry can succeed.
	ErrMisconfigured = errors.New("exam misconfigured")
)
