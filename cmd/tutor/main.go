// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command tutor starts the AleutianTutor HTTP server.
//
// This is the main entry point for the containerized tutoring service.
// It reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - TUTOR_PORT: HTTP server port (default: 12310)
//   - LLM_BACKEND_TYPE: LLM provider - ollama, openai, claude (default: ollama)
//   - ROSTER_PATH: YAML student roster file (optional, built-in demo roster if unset)
//   - EVENT_LOG_PATH: JSONL session event log (default: ./logs/tutor_events.jsonl)
//   - SESSION_IDLE_TTL: idle eviction window, e.g. "45m" (default: 1h)
//   - JANITOR_INTERVAL: eviction sweep interval, e.g. "5m" (default: 10m)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: aleutian-otel-collector:4317)
//   - TUTOR_API_KEY: static bearer key guarding /v1 routes (default: open)
//
// # Usage
//
//	# Build
//	go build -o tutor ./cmd/tutor
//
//	# Run
//	./tutor
//
//	# Or via container
//	podman-compose up tutor
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Build configuration from environment variables
	cfg := orchestrator.Config{
		Port:            getEnvInt("TUTOR_PORT", 12310),
		LLMBackend:      getEnvString("LLM_BACKEND_TYPE", "ollama"),
		RosterPath:      os.Getenv("ROSTER_PATH"),
		EventLogPath:    getEnvString("EVENT_LOG_PATH", "./logs/tutor_events.jsonl"),
		SessionIdleTTL:  getEnvDuration("SESSION_IDLE_TTL", time.Hour),
		JanitorInterval: getEnvDuration("JANITOR_INTERVAL", 10*time.Minute),
		OTelEndpoint:    getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "aleutian-otel-collector:4317"),
		APIKey:          os.Getenv("TUTOR_API_KEY"),
	}

	slog.Info("Starting tutor",
		"port", cfg.Port,
		"llm_backend", cfg.LLMBackend,
		"roster_path", cfg.RosterPath,
	)

	svc, err := orchestrator.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create tutor service: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Tutor service error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns the environment variable as a duration or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
