// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command tutoreval drives automated tutoring sessions against a running
// tutor server and scores the level predictions they produce.
//
// # Usage
//
//	# Run one automated session and append the result to results.jsonl
//	tutoreval run --student student_mia --topic topic_fractions --expected 4
//
//	# Score an accumulated results file
//	tutoreval score --input results.jsonl
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tutoreval",
	Short: "Automated session driver and scorer for the tutor service",
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// Optional .env for TUTOR_SERVER_URL and friends.
	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded environment from .env")
	}

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
