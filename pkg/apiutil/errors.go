// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package apiutil

import "github.com/onlineprabhakar/aiosmpp/pkg/errors"

// Errors defined in this file are used by the LoggingErrorEncoder decorator
// and the legacy send endpoint. The send endpoint messages are part of the
// public contract and must not be reworded.
var (
	// ErrValidation indicates that an invalid request was received.
	ErrValidation = errors.New("something went wrong with the request")

	// ErrInvalidQueryParams indicates invalid query parameters.
	ErrInvalidQueryParams = errors.New("invalid query parameters")

	// ErrMissingTo indicates that the destination address is missing.
	ErrMissingTo = errors.New("to address missing from payload")

	// ErrMissingUsername indicates that the username is missing.
	ErrMissingUsername = errors.New("username missing from payload")

	// ErrMissingPassword indicates that the password is missing.
	ErrMissingPassword = errors.New("password missing from payload")

	// ErrMissingContent indicates that neither content nor hex-content was provided.
	ErrMissingContent = errors.New("content or hex-content must be provided")

	// ErrInvalidCoding indicates an out of range data coding value.
	ErrInvalidCoding = errors.New("coding must be in the range 0-14")

	// ErrInvalidPriority indicates an out of range priority value.
	ErrInvalidPriority = errors.New("priority must be in the range 0-3")

	// ErrValidityNotInt indicates a non integer validity period.
	ErrValidityNotInt = errors.New("validity-period must be an integer")

	// ErrValidityNegative indicates a negative validity period.
	ErrValidityNegative = errors.New("validity-period must be greater than 0")

	// ErrInvalidTags indicates non integer tags.
	ErrInvalidTags = errors.New("tags must be integers")

	// ErrInvalidHexContent indicates hex-content that is not valid hex.
	ErrInvalidHexContent = errors.New("hex-content must be valid hex")

	// ErrMissingDLRURL indicates a DLR request without a callback URL.
	ErrMissingDLRURL = errors.New("dlr-url missing")

	// ErrMissingDLRLevel indicates a DLR request without a level.
	ErrMissingDLRLevel = errors.New("dlr-level missing")

	// ErrMissingDLRMethod indicates a DLR request without a method.
	ErrMissingDLRMethod = errors.New("dlr-method missing")

	// ErrInvalidDLRLevel indicates a DLR level outside 1..3.
	ErrInvalidDLRLevel = errors.New("dlr-level not 1,2 or 3")

	// ErrInvalidDLRMethod indicates a DLR method other than GET or POST.
	ErrInvalidDLRMethod = errors.New("dlr-method not GET or POST")

	// ErrNoRoute indicates that no route matched the message.
	ErrNoRoute = errors.New("No route found")
)
