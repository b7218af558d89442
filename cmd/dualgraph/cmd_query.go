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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/dualgraph/engine"
)

var (
	flagQueryFiles []string
	flagQueryLimit int
)

// queryCmd ranks past steps against a free-text query.
var queryCmd = &cobra.Command{
	Use:   "query PROJECT_ROOT QUERY",
	Short: "Rank past steps against a free-text query",
	Long: `Scores every recorded step against the query and an optional file
filter, and prints the markdown ranking.

Example:
  dualgraph query /workspace/demo "auth middleware" --file /workspace/demo/src/auth.ts`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		resp, err := eng.SimilarAttempts(cmd.Context(), &engine.SimilarAttemptsRequest{
			ProjectRoot: args[0],
			Query:       args[1],
			FilePaths:   flagQueryFiles,
			Limit:       flagQueryLimit,
		})
		if err != nil {
			return err
		}
		if len(resp.Results) == 0 {
			fmt.Println("no matching steps")
			return nil
		}
		fmt.Print(resp.SummaryMarkdown)
		return nil
	},
}

func init() {
	queryCmd.Flags().StringSliceVar(&flagQueryFiles, "file", nil, "File path filter (repeatable)")
	queryCmd.Flags().IntVar(&flagQueryLimit, "limit", 0, "Maximum results (default 5)")
	rootCmd.AddCommand(queryCmd)
}
