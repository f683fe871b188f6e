// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the bauth CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/stacklok/batchauth/cmd/bauth/app"
	"github.com/stacklok/batchauth/pkg/logger"
)

func main() {
	// Initialize the logger
	logger.Initialize()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
