// Copyright (c) aiosmpp authors
// SPDX-License-Identifier: Apache-2.0

// Package logger provides a JSON slog logger used by all services.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a JSON structured logger writing to w with the given level.
// Level is one of "debug", "info", "warn" or "error".
func New(w io.Writer, levelText string) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelText)); err != nil {
		return nil, err
	}

	logHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})

	return slog.New(logHandler), nil
}

// ExitWithError exits the process with the given code. It is meant to be
// deferred in main so that deferred cleanups run before the exit.
func ExitWithError(code *int) {
	os.Exit(*code)
}
