package handlers

// Stable values of ErrorResponse.Code. Middleware answers with its own
// codes: bad_request (Idempotency-Key), too_many_requests and
// internal_error (panics).
const (
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Storage failures, one per summary operation.
	ErrCodeSummarizeFailed = "summarize_failed"
	ErrCodeListFailed      = "list_failed"
	ErrCodeDeleteFailed    = "delete_failed"
)
