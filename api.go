// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package aiosmpp

// Response contains HTTP response specific methods.
type Response interface {
	// Code returns HTTP response code.
	Code() int

	// Headers returns map of HTTP headers with their values.
	Headers() map[string]string

	// Empty indicates if HTTP response has content.
	Empty() bool
}
