// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

// Package api contains HTTP encode/decode helpers shared by service APIs.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/onlineprabhakar/aiosmpp"
	"github.com/onlineprabhakar/aiosmpp/pkg/apiutil"
	"github.com/onlineprabhakar/aiosmpp/pkg/errors"
)

// ContentType represents JSON content type.
const ContentType = "application/json"

// EncodeResponse encodes successful response.
func EncodeResponse(_ context.Context, w http.ResponseWriter, response interface{}) error {
	if ar, ok := response.(aiosmpp.Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	return json.NewEncoder(w).Encode(response)
}

// EncodeError encodes an error response.
func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	if errors.Contains(err, apiutil.ErrValidation) {
		_, err = errors.Unwrap(err)
	}

	w.Header().Set("Content-Type", ContentType)
	switch {
	case errors.Contains(err, apiutil.ErrNoRoute):
		w.WriteHeader(http.StatusPreconditionFailed)
	case errors.Contains(err, apiutil.ErrInvalidQueryParams),
		errors.Contains(err, errors.ErrMalformedEntity):
		w.WriteHeader(http.StatusBadRequest)
	case errors.Contains(err, errors.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}

	if errorVal, ok := err.(errors.Error); ok {
		if err := json.NewEncoder(w).Encode(errorVal); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
}
