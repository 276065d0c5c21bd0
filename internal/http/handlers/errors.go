// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// These symbolic constants are mapped to HTTP responses via the fail() helper
// in this package and give clients a stable, machine-readable error taxonomy
// that supplements human-readable messages.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Generic codes (bad_request, not_found, …) mirror HTTP status semantics.
//   - Domain-specific codes (upload_failed, send_failed, …) are reserved for
//     business logic errors that the status alone cannot convey.
//   - Not-found and ownership failures share the not_found code so existence
//     cannot be probed.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeUploadFailed     = "upload_failed"
	ErrCodeCreateFailed     = "create_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeSendFailed       = "send_failed"
	ErrCodeSaveFailed       = "save_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
