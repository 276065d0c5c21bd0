// Package services defines the business logic for the document lifecycle,
// chat sessions, and user profiles. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the handler
// layer. Ownership mismatches and missing rows are deliberately collapsed
// into the same not-found errors so that callers cannot probe for the
// existence of entities they do not own.
package services

import "errors"

// Document-related errors.
var (
	// ErrDocumentNotFound indicates that the requested document does not exist
	// or is not accessible to the current user.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrEmptyTitle is returned when an upload carries a blank title.
	ErrEmptyTitle = errors.New("title is empty")

	// ErrInvalidCategory is returned when a category is outside the closed
	// business/citizen/student tag set.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrEmptyFileID is returned when an upload carries no storage handle.
	ErrEmptyFileID = errors.New("file id is empty")
)

// Chat-related errors.
var (
	// ErrSessionNotFound indicates that the requested chat session does not
	// exist or is not accessible to the current user.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmptyPrompt is returned when a message submission has no content.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrTooLong is returned when a message exceeds the configured maximum
	// length limit.
	ErrTooLong = errors.New("prompt too long")
)

// Profile-related errors.
var (
	// ErrInvalidTheme is returned when a profile theme is outside the
	// light/dark tag set.
	ErrInvalidTheme = errors.New("invalid theme")
)
