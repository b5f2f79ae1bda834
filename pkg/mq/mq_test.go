// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

package mq_test

import (
	"testing"
	"time"

	"github.com/onlineprabhakar/aiosmpp/pkg/mq"
	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		out  string
	}{
		{desc: "already clean", in: "smpp_conn1", out: "smpp_conn1"},
		{desc: "spaces deleted", in: "my conn 1", out: "myconn1"},
		{desc: "punctuation mapped", in: "conn.one:two", out: "conn-one-two"},
		{desc: "dash and underscore kept", in: "conn_a-b", out: "conn_a-b"},
		{desc: "unicode mapped", in: "connéctor", out: "conn-ctor"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.out, mq.Sanitize(tc.in), tc.desc)
	}
}

func TestNames(t *testing.T) {
	n := mq.Names{}
	assert.Equal(t, "smppconn_smpp_conn1", n.Connector("smpp_conn1"))
	assert.Equal(t, "dlr", n.DLR())
	assert.Equal(t, "mo", n.MO())
	assert.False(t, n.FIFO())

	n = mq.Names{Prefix: "prod-", Suffix: ".fifo"}
	assert.Equal(t, "prod-smppconn_conn-one.fifo", n.Connector("conn one"))
	assert.Equal(t, "prod-dlr.fifo", n.DLR())
	assert.True(t, n.FIFO())
}

func TestClampDelay(t *testing.T) {
	assert.Equal(t, time.Duration(0), mq.ClampDelay(-time.Second))
	assert.Equal(t, 30*time.Second, mq.ClampDelay(30*time.Second))
	assert.Equal(t, mq.MaxDelay, mq.ClampDelay(time.Hour))
}
