// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

// Package api exposes the legacy HTTP send API. Responses on /send are
// plain text, `Success "<id>"` or `Error "<reason>"`, the wording is load
// bearing for existing callers.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/onlineprabhakar/aiosmpp"
	"github.com/onlineprabhakar/aiosmpp/httpapi"
	"github.com/onlineprabhakar/aiosmpp/pkg/apiutil"
	"github.com/onlineprabhakar/aiosmpp/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const contentType = "text/plain; charset=utf-8"

// MakeHandler returns a HTTP API handler with health check and metrics.
func MakeHandler(svc httpapi.Service, logger *slog.Logger, instanceID string) http.Handler {
	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, encodeError)),
	}

	mux := chi.NewRouter()

	mux.Get("/send", kithttp.NewServer(
		sendEndpoint(svc),
		decodeSendReq,
		encodeSendResponse,
		opts...,
	).ServeHTTP)

	mux.Get("/api/v1/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.Get("/health", aiosmpp.Health("httpapi", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeSendReq(_ context.Context, r *http.Request) (interface{}, error) {
	q := r.URL.Query()

	return sendReq{
		to:            q.Get("to"),
		from:          q.Get("from"),
		hasUsername:   q.Has("username"),
		hasPassword:   q.Has("password"),
		coding:        q.Get("coding"),
		priority:      q.Get("priority"),
		sdt:           q.Get("sdt"),
		validity:      q.Get("validity-period"),
		hasValid:      q.Has("validity-period"),
		tags:          q.Get("tags"),
		content:       q.Get("content"),
		hasContent:    q.Has("content"),
		hexContent:    q.Get("hex-content"),
		hasHexContent: q.Has("hex-content"),
		dlr:           q.Get("dlr"),
		dlrURL:        q.Get("dlr-url"),
		hasDLRURL:     q.Has("dlr-url"),
		dlrLevel:      q.Get("dlr-level"),
		hasDLRLevel:   q.Has("dlr-level"),
		dlrMethod:     q.Get("dlr-method"),
		hasDLRMethod:  q.Has("dlr-method"),
	}, nil
}

func encodeSendResponse(_ context.Context, w http.ResponseWriter, response interface{}) error {
	res := response.(sendRes)

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, err := fmt.Fprintf(w, "Success %q", res.ID)
	return err
}

func encodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", contentType)

	switch {
	case errors.Contains(err, apiutil.ErrNoRoute):
		w.WriteHeader(http.StatusPreconditionFailed)
		_, _ = fmt.Fprintf(w, "Error %q", "No route found")
	case errors.Contains(err, apiutil.ErrValidation),
		errors.Contains(err, apiutil.ErrInvalidHexContent):
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprintf(w, "Error %q", reason(err))
	default:
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = fmt.Fprintf(w, "Error %q", "internal server error")
	}
}

// reason digs the caller facing message out of a wrapped validation error.
func reason(err error) string {
	if errors.Contains(err, apiutil.ErrValidation) {
		if _, inner := errors.Unwrap(err); inner != nil {
			err = inner
		}
	}
	if e, ok := err.(errors.Error); ok {
		return e.Msg()
	}
	return err.Error()
}
