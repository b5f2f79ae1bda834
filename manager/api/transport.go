// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

// Package api exposes the manager HTTP API: the connector status listing
// the HTTP API's route table polls.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-kit/kit/endpoint"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/onlineprabhakar/aiosmpp"
	internalapi "github.com/onlineprabhakar/aiosmpp/internal/api"
	"github.com/onlineprabhakar/aiosmpp/manager"
	"github.com/onlineprabhakar/aiosmpp/pkg/apiutil"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MakeHandler returns a HTTP API handler with health check and metrics.
func MakeHandler(svc manager.Service, logger *slog.Logger, instanceID string) http.Handler {
	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, internalapi.EncodeError)),
	}

	mux := chi.NewRouter()

	mux.Get("/api/v1/smpp/connectors", kithttp.NewServer(
		connectorsEndpoint(svc),
		decodeConnectorsReq,
		internalapi.EncodeResponse,
		opts...,
	).ServeHTTP)

	mux.Get("/health", aiosmpp.Health("smppmanager", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeConnectorsReq(_ context.Context, _ *http.Request) (interface{}, error) {
	return nil, nil
}

func connectorsEndpoint(svc manager.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ interface{}) (interface{}, error) {
		return connectorsRes{Connectors: svc.Connectors(ctx)}, nil
	}
}

type connectorsRes struct {
	Connectors map[string]string `json:"connectors"`
}

func (res connectorsRes) Code() int                  { return http.StatusOK }
func (res connectorsRes) Headers() map[string]string { return map[string]string{} }
func (res connectorsRes) Empty() bool                { return false }
