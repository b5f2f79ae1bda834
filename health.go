// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package aiosmpp

import (
	"encoding/json"
	"net/http"
)

const (
	version     = "0.3.0"
	contentType = "application/health+json"
	svcStatus   = "pass"
)

// HealthInfo contains health check response.
type HealthInfo struct {
	// Status contains service status.
	Status string `json:"status"`

	// Version contains current service version.
	Version string `json:"version"`

	// Description contains service description.
	Description string `json:"description"`

	// InstanceID contains the ID of the service instance.
	InstanceID string `json:"instance_id"`
}

// Health exposes an HTTP handler for retrieving service health.
func Health(service, instanceID string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		res := HealthInfo{
			Status:      svcStatus,
			Version:     version,
			Description: service + " service",
			InstanceID:  instanceID,
		}

		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(res); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
