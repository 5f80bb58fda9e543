// Package services defines the business logic of the summary backend.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Upstream completion failures are deliberately absent here: the summarization
// workflow reports them as diagnostic text in place of a summary. Translation
// of the errors below into HTTP status codes is performed at the handler layer.
package services

import "errors"

var (
	// ErrEmptyContent is returned by the request guard when the submitted
	// text is empty or whitespace only.
	ErrEmptyContent = errors.New("content must not be empty")

	// ErrNoReplay indicates that no stored summary exists for an
	// idempotency key (unknown, expired, or its record was deleted).
	ErrNoReplay = errors.New("no stored result for idempotency key")
)
