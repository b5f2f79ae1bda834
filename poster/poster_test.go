// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package poster_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/onlineprabhakar/aiosmpp/pkg/mq"
	"github.com/onlineprabhakar/aiosmpp/pkg/mq/memory"
	"github.com/onlineprabhakar/aiosmpp/poster"
	"github.com/onlineprabhakar/aiosmpp/sms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type capture struct {
	mu       sync.Mutex
	requests []*http.Request
	forms    []map[string]string
	bodies   [][]byte
	status   int
}

func (c *capture) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		defer c.mu.Unlock()

		body, _ := io.ReadAll(r.Body)
		c.bodies = append(c.bodies, body)
		c.requests = append(c.requests, r)

		r.Body = io.NopCloser(bytes.NewReader(body))
		_ = r.ParseForm()
		form := make(map[string]string)
		for k := range r.Form {
			form[k] = r.Form.Get(k)
		}
		c.forms = append(c.forms, form)

		w.WriteHeader(c.status)
	}
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func publish(t *testing.T, b *memory.Broker, queue string, ev any) {
	t.Helper()
	body, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, b.Ensure(context.Background(), queue))
	require.NoError(t, b.Publish(context.Background(), queue, body, 0))
}

func runPoster(t *testing.T, run func(ctx context.Context) error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = run(ctx)
	}()
	t.Cleanup(cancel)
}

func TestDLRPostDelivery(t *testing.T) {
	c := &capture{status: http.StatusOK}
	ts := httptest.NewServer(c.handler())
	defer ts.Close()

	broker := memory.New()
	names := mq.Names{}
	publish(t, broker, names.DLR(), sms.DLREvent{
		ID:            "req-1",
		IDSMSC:        "smsc-1",
		Connector:     "conn1",
		Level:         3,
		Method:        "POST",
		URL:           ts.URL,
		MessageStatus: "DELIVRD",
	})

	runPoster(t, poster.NewDLR(broker, names, discard).Run)

	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, 5*time.Millisecond)

	var got sms.DLREvent
	require.NoError(t, json.Unmarshal(c.bodies[0], &got))
	assert.Equal(t, "req-1", got.ID)
	assert.Equal(t, "DELIVRD", got.MessageStatus)
	assert.Equal(t, "application/json", c.requests[0].Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return broker.Len(names.DLR()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestDLRGetDelivery(t *testing.T) {
	c := &capture{status: http.StatusOK}
	ts := httptest.NewServer(c.handler())
	defer ts.Close()

	broker := memory.New()
	names := mq.Names{}
	publish(t, broker, names.DLR(), sms.DLREvent{
		ID:            "req-2",
		Method:        "GET",
		URL:           ts.URL,
		MessageStatus: "UNDELIV",
	})

	runPoster(t, poster.NewDLR(broker, names, discard).Run)

	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, 5*time.Millisecond)
	r := c.requests[0]
	assert.Equal(t, http.MethodGet, r.Method)
	assert.Equal(t, "req-2", r.URL.Query().Get("id"))
	assert.Equal(t, "UNDELIV", r.URL.Query().Get("message_status"))
}

func TestDLRFailureRequeuedWithBackoff(t *testing.T) {
	c := &capture{status: http.StatusInternalServerError}
	ts := httptest.NewServer(c.handler())
	defer ts.Close()

	broker := memory.New()
	names := mq.Names{}
	publish(t, broker, names.DLR(), sms.DLREvent{
		ID:     "req-3",
		Method: "POST",
		URL:    ts.URL,
	})

	runPoster(t, poster.NewDLR(broker, names, discard).Run)

	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, 5*time.Millisecond)

	// The event goes back on the queue with retries=1 and a 2s delay, which
	// keeps it invisible to the next receive.
	require.Eventually(t, func() bool {
		delays := broker.Delays(names.DLR())
		return len(delays) == 2 && delays[1] == 2*time.Second
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, broker.Len(names.DLR()))
}

func TestDLRRetryBudgetExhausted(t *testing.T) {
	c := &capture{status: http.StatusBadGateway}
	ts := httptest.NewServer(c.handler())
	defer ts.Close()

	broker := memory.New()
	names := mq.Names{}
	publish(t, broker, names.DLR(), sms.DLREvent{
		ID:      "req-4",
		Method:  "POST",
		URL:     ts.URL,
		Retries: 10,
	})

	runPoster(t, poster.NewDLR(broker, names, discard).Run)

	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return broker.Len(names.DLR()) == 0 }, time.Second, 5*time.Millisecond)
	// One attempt, then dropped: nothing requeued.
	assert.Equal(t, []time.Duration{0}, broker.Delays(names.DLR()))
}

func TestMOFormDelivery(t *testing.T) {
	c := &capture{status: http.StatusOK}
	ts := httptest.NewServer(c.handler())
	defer ts.Close()

	broker := memory.New()
	names := mq.Names{}
	publish(t, broker, names.MO(), sms.MOEvent{
		ID:              "mo-1",
		To:              "447428222222",
		From:            "447428111111",
		Coding:          0,
		OriginConnector: "conn1",
		Msg:             "aGVsbG8=",
	})

	runPoster(t, poster.NewMO(broker, names, ts.URL, discard).Run)

	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, 5*time.Millisecond)

	form := c.forms[0]
	assert.Equal(t, "mo-1", form["id"])
	assert.Equal(t, "447428222222", form["to"])
	assert.Equal(t, "447428111111", form["from"])
	assert.Equal(t, "conn1", form["origin-connector"])
	assert.Equal(t, "aGVsbG8=", form["msg"])
	assert.Equal(t, "application/x-www-form-urlencoded", c.requests[0].Header.Get("Content-Type"))
}

func TestMOFailureRequeued(t *testing.T) {
	c := &capture{status: http.StatusNotFound}
	ts := httptest.NewServer(c.handler())
	defer ts.Close()

	broker := memory.New()
	names := mq.Names{}
	publish(t, broker, names.MO(), sms.MOEvent{ID: "mo-2", Msg: "eA=="})

	runPoster(t, poster.NewMO(broker, names, ts.URL, discard).Run)

	require.Eventually(t, func() bool {
		delays := broker.Delays(names.MO())
		return len(delays) == 2 && delays[1] == 2*time.Second
	}, time.Second, 5*time.Millisecond)
}
