// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/dualgraph/server"
)

// serveCmd runs the stdio tool server until stdin closes.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the stdio JSON-RPC tool server",
	Long: `Reads newline-delimited JSON-RPC 2.0 requests from stdin and writes
responses to stdout. Diagnostics go to stderr or the configured log file;
stdout carries protocol frames only.

Example:
  dualgraph serve --backend badger --base-dir ~/.dualgraph`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, logger, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("stdio server started")
		defer logger.Info("stdio server stopped")
		return server.New(eng, server.WithLogger(logger)).Run(ctx, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
