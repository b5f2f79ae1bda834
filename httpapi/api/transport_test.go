// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package api_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/onlineprabhakar/aiosmpp/httpapi"
	"github.com/onlineprabhakar/aiosmpp/httpapi/api"
	"github.com/onlineprabhakar/aiosmpp/pkg/apiutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubService struct {
	id   string
	err  error
	last httpapi.SendRequest
}

func (s *stubService) Send(_ context.Context, req httpapi.SendRequest) (string, error) {
	s.last = req
	return s.id, s.err
}

func (s *stubService) EnsureQueues(context.Context) error { return nil }

func get(t *testing.T, ts *httptest.Server, path string) (int, string) {
	t.Helper()

	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestSendSuccess(t *testing.T) {
	svc := &stubService{id: "3ec82d04-8c3c-4f83-9f04-8a2954e9f21f"}
	ts := httptest.NewServer(api.MakeHandler(svc, discard, "test"))
	defer ts.Close()

	code, body := get(t, ts, "/send?to=447428555555&username=u&password=p&content=hello")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, `Success "3ec82d04-8c3c-4f83-9f04-8a2954e9f21f"`, body)
	assert.Equal(t, "447428555555", svc.last.To)
	assert.Equal(t, "hello", svc.last.Content)
}

func TestSendValidation(t *testing.T) {
	svc := &stubService{id: "x"}
	ts := httptest.NewServer(api.MakeHandler(svc, discard, "test"))
	defer ts.Close()

	cases := []struct {
		desc  string
		query string
		body  string
	}{
		{
			desc:  "missing to",
			query: "/send?username=u&password=p&content=hi",
			body:  `Error "to address missing from payload"`,
		},
		{
			desc:  "missing username",
			query: "/send?to=123&password=p&content=hi",
			body:  `Error "username missing from payload"`,
		},
		{
			desc:  "missing password",
			query: "/send?to=123&username=u&content=hi",
			body:  `Error "password missing from payload"`,
		},
		{
			desc:  "missing content",
			query: "/send?to=123&username=u&password=p",
			body:  `Error "content or hex-content must be provided"`,
		},
		{
			desc:  "bad coding",
			query: "/send?to=123&username=u&password=p&content=hi&coding=99",
			body:  `Error "coding must be in the range 0-14"`,
		},
		{
			desc:  "bad priority",
			query: "/send?to=123&username=u&password=p&content=hi&priority=9",
			body:  `Error "priority must be in the range 0-3"`,
		},
		{
			desc:  "validity not an int",
			query: "/send?to=123&username=u&password=p&content=hi&validity-period=soon",
			body:  `Error "validity-period must be an integer"`,
		},
		{
			desc:  "validity negative",
			query: "/send?to=123&username=u&password=p&content=hi&validity-period=-5",
			body:  `Error "validity-period must be greater than 0"`,
		},
		{
			desc:  "bad tags",
			query: "/send?to=123&username=u&password=p&content=hi&tags=1,x",
			body:  `Error "tags must be integers"`,
		},
		{
			desc:  "dlr without url",
			query: "/send?to=123&username=u&password=p&content=hi&dlr=yes",
			body:  `Error "dlr-url missing"`,
		},
		{
			desc:  "dlr bad level",
			query: "/send?to=123&username=u&password=p&content=hi&dlr=yes&dlr-url=http://cb&dlr-level=9&dlr-method=GET",
			body:  `Error "dlr-level not 1,2 or 3"`,
		},
		{
			desc:  "dlr bad method",
			query: "/send?to=123&username=u&password=p&content=hi&dlr=yes&dlr-url=http://cb&dlr-level=1&dlr-method=PUT",
			body:  `Error "dlr-method not GET or POST"`,
		},
	}

	for _, tc := range cases {
		code, body := get(t, ts, tc.query)
		assert.Equal(t, http.StatusBadRequest, code, tc.desc)
		assert.Equal(t, tc.body, body, tc.desc)
	}
}

func TestSendDLRParsed(t *testing.T) {
	svc := &stubService{id: "x"}
	ts := httptest.NewServer(api.MakeHandler(svc, discard, "test"))
	defer ts.Close()

	code, _ := get(t, ts, "/send?to=123&username=u&password=p&content=hi&dlr=yes&dlr-url=http://cb/dlr&dlr-level=3&dlr-method=post")
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, svc.last.DLR)
	assert.Equal(t, "http://cb/dlr", svc.last.DLR.URL)
	assert.Equal(t, 3, svc.last.DLR.Level)
	assert.Equal(t, "POST", svc.last.DLR.Method)
}

func TestSendNoRoute(t *testing.T) {
	svc := &stubService{err: apiutil.ErrNoRoute}
	ts := httptest.NewServer(api.MakeHandler(svc, discard, "test"))
	defer ts.Close()

	code, body := get(t, ts, "/send?to=123&username=u&password=p&content=hi")
	assert.Equal(t, http.StatusPreconditionFailed, code)
	assert.Equal(t, `Error "No route found"`, body)
}

func TestStatus(t *testing.T) {
	ts := httptest.NewServer(api.MakeHandler(&stubService{}, discard, "test"))
	defer ts.Close()

	code, body := get(t, ts, "/api/v1/status")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body)
}

func TestHealth(t *testing.T) {
	ts := httptest.NewServer(api.MakeHandler(&stubService{}, discard, "test"))
	defer ts.Close()

	code, body := get(t, ts, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"status":"pass"`)
}
