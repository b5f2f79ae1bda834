// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package errors

var (
	// ErrMalformedEntity indicates a malformed entity specification.
	ErrMalformedEntity = New("malformed entity specification")

	// ErrNotFound indicates a non-existent entity request.
	ErrNotFound = New("entity not found")

	// ErrConnectionLost indicates that the underlying transport connection was lost.
	ErrConnectionLost = New("connection lost")

	// ErrTimeout indicates that an operation did not complete within its deadline.
	ErrTimeout = New("operation timed out")

	// ErrQueueNotFound indicates a request against a queue that does not exist.
	ErrQueueNotFound = New("queue not found")

	// ErrUnsupportedContentType indicates invalid content type.
	ErrUnsupportedContentType = New("invalid content type")
)
