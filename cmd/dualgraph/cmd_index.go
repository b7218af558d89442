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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/dualgraph/engine"
	"github.com/AleutianAI/dualgraph/indexer"
)

var flagIndexManifest string

// indexCmd ingests a manifest of already-extracted file descriptors.
var indexCmd = &cobra.Command{
	Use:   "index PROJECT_ROOT",
	Short: "Index a project from a JSON manifest of file descriptors",
	Long: `Builds the project's Code Graph from a manifest: a JSON array of file
descriptors ({path, language, size_bytes, last_modified, symbols}). The
engine does not parse source code; the manifest carries the extracted
symbols and concepts.

Example:
  dualgraph index /workspace/demo --manifest files.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(flagIndexManifest)
		if err != nil {
			return fmt.Errorf("read manifest: %w", err)
		}
		var files []indexer.FileInput
		if err := json.Unmarshal(data, &files); err != nil {
			return fmt.Errorf("parse manifest: %w", err)
		}

		eng, _, cleanup, err := setup()
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := eng.IndexProject(cmd.Context(), &engine.IndexProjectRequest{
			ProjectRoot: args[0],
			Files:       files,
		})
		if err != nil {
			return err
		}
		fmt.Printf("indexed %d files, %d symbols, %d concepts in %dms\n",
			res.FilesIndexed, res.SymbolsIndexed, res.ConceptsIndexed, res.DurationMillis)
		return nil
	},
}

func init() {
	indexCmd.Flags().StringVar(&flagIndexManifest, "manifest", "", "Path to the JSON file manifest (required)")
	_ = indexCmd.MarkFlagRequired("manifest")
	rootCmd.AddCommand(indexCmd)
}
