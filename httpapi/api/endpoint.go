// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"

	"github.com/go-kit/kit/endpoint"
	"github.com/onlineprabhakar/aiosmpp/httpapi"
	"github.com/onlineprabhakar/aiosmpp/pkg/apiutil"
	"github.com/onlineprabhakar/aiosmpp/pkg/errors"
)

func sendEndpoint(svc httpapi.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req, err := request.(sendReq).validate()
		if err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}

		id, err := svc.Send(ctx, req)
		if err != nil {
			return nil, err
		}

		return sendRes{ID: id}, nil
	}
}
