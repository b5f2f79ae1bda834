// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package api

// sendRes is the accepted send response, rendered as `Success "<id>"`.
type sendRes struct {
	ID string
}
