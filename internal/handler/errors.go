package handler

import (
	"errors"
	"net/http"

	"github.com/kkmanuu/online-academicaxis-management-system/internal/attempt"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/response"
)

// attemptErrCode maps attempt lifecycle errors to API error codes. Wrapped
// errors (definition lookups, persistence) match through errors.Is.
func attemptErrCode(err error) response.ErrCode {
	switch {
	case errors.Is(err, attempt.ErrAlreadyStarted):
		return response.ErrAttemptAlreadyStarted
	case errors.Is(err, attempt.ErrAlreadyCompleted):
		return response.ErrExamAlreadyCompleted
	case errors.Is(err, attempt.ErrAlreadySubmitted):
		return response.ErrAttemptSubmitted
	case errors.Is(err, attempt.ErrNotInProgress):
		return response.ErrAttemptNotInProgress
	case errors.Is(err, attempt.ErrPastDeadline):
		return response.ErrPastDeadline
	case errors.Is(err, attempt.ErrExamNotAvailable):
		return response.ErrExamNotAvailable
	case errors.Is(err, attempt.ErrMisconfigured):
		return response.ErrExamMisconfigured
	}
	return response.ErrInternal
}

// attemptErrStatus picks the HTTP status for an attempt lifecycle error.
func attemptErrStatus(err error) int {
	switch {
	case errors.Is(err, attempt.ErrAlreadyStarted),
		errors.Is(err, attempt.ErrAlreadyCompleted),
		errors.Is(err, attempt.ErrAlreadySubmitted):
		return http.StatusConflict
	case errors.Is(err, attempt.ErrNotInProgress):
		return http.StatusNotFound
	case errors.Is(err, attempt.ErrPastDeadline),
		errors.Is(err, attempt.ErrExamNotAvailable):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
