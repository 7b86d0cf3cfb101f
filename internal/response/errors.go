package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrForbidden     ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Connection protocol ───────────────────────────────────────────
	ErrBadHandshake       ErrCode = "BAD_HANDSHAKE"
	ErrUnknownMessageType ErrCode = "UNKNOWN_MESSAGE_TYPE"

	// ─── Attempt state ─────────────────────────────────────────────────
	ErrAttemptAlreadyStarted ErrCode = "ATTEMPT_ALREADY_STARTED"
	ErrExamAlreadyCompleted  ErrCode = "EXAM_ALREADY_COMPLETED"
	ErrAttemptSubmitted      ErrCode = "ATTEMPT_ALREADY_SUBMITTED"
	ErrAttemptNotInProgress  ErrCode = "ATTEMPT_NOT_IN_PROGRESS"
	ErrPastDeadline          ErrCode = "PAST_DEADLINE"
	ErrExamNotAvailable      ErrCode = "EXAM_NOT_AVAILABLE"

	// ─── Configuration ─────────────────────────────────────────────────
	ErrExamMisconfigured ErrCode = "EXAM_MISCONFIGURED"

	// ─── Resources / Server ────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrBadHandshake:
		return "Missing or invalid connection parameters."
	case ErrUnknownMessageType:
		return "Unknown message type."
	case ErrAttemptAlreadyStarted:
		return "This exam attempt has already been started."
	case ErrExamAlreadyCompleted:
		return "You have already completed this exam."
	case ErrAttemptSubmitted:
		return "This exam attempt has already been submitted."
	case ErrAttemptNotInProgress:
		return "No exam attempt is in progress."
	case ErrPastDeadline:
		return "The exam deadline has passed."
	case ErrExamNotAvailable:
		return "This exam is not currently available."
	case ErrExamMisconfigured:
		return "The exam is misconfigured. Please contact your instructor."
	case ErrNotFound:
		return "Resource not found."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
