package errors

// Error codes for standardized error responses
const (
	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeNotFound = "not_found"
	ErrCodeConflict = "conflict"

	// Session errors
	ErrCodeSessionNotFound    = "session_not_found"
	ErrCodeSessionFinished    = "session_finished"
	ErrCodeStartFailed        = "start_failed"
	ErrCodeLoadFailed         = "load_failed"
	ErrCodeQuestionUnscored   = "question_unscored"
	ErrCodeStarterUnscored    = "starter_unscored"
	ErrCodeScoringInFlight    = "scoring_in_flight"
	ErrCodeScoringFailed      = "scoring_failed"
	ErrCodeAnswerTooShort     = "answer_too_short"
	ErrCodeNoOptionSelected   = "no_option_selected"
	ErrCodeNavigationRefused  = "navigation_refused"
	ErrCodeFinalizationFailed = "finalization_failed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"
	ErrCodeConnectionError    = "connection_error"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
)
