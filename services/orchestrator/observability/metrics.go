// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the
// tutoring orchestrator.
//
// # Description
//
// This package implements Prometheus metrics for monitoring tutoring
// sessions. Metrics include:
//   - Turn counters (by phase and status)
//   - Level lock outcomes (parsed, digit_fallback, default)
//   - Dialogue generation latency histograms (by actor role)
//   - Active session gauge
//
// # Integration
//
// Metrics are exposed via /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "aleutian"

// Subsystem for tutoring metrics
const tutorSubsystem = "tutor"

// TutorMetrics holds all Prometheus metrics for tutoring operations.
// Initialize once at startup via InitMetrics().
type TutorMetrics struct {
	// SessionsStartedTotal counts created sessions.
	SessionsStartedTotal prometheus.Counter

	// TurnsTotal counts executed tutor turns by phase and status.
	// Labels: phase (diagnostic, tutoring), status (success, error)
	TurnsTotal *prometheus.CounterVec

	// LevelLocksTotal counts level lock events by outcome.
	// Labels: outcome (parsed, digit_fallback, default)
	LevelLocksTotal *prometheus.CounterVec

	// LockedLevels observes the distribution of locked levels (1-5).
	LockedLevels prometheus.Histogram

	// DialogueLatencySeconds measures dialogue generation latency.
	// Labels: role (tutor, student, judge)
	DialogueLatencySeconds *prometheus.HistogramVec

	// ActiveSessions tracks sessions currently held in the store.
	ActiveSessions prometheus.Gauge

	// EvictionsTotal counts idle sessions removed by the janitor.
	EvictionsTotal prometheus.Counter

	// ErrorsTotal counts failures by component and error code.
	// Labels: component (turn, tutor_turn, judge), error_code
	ErrorsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of TutorMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *TutorMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *TutorMetrics {
	DefaultMetrics = &TutorMetrics{
		SessionsStartedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: tutorSubsystem,
				Name:      "sessions_started_total",
				Help:      "Total number of tutoring sessions created",
			},
		),

		TurnsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: tutorSubsystem,
				Name:      "turns_total",
				Help:      "Total tutor turns executed by phase and status",
			},
			[]string{"phase", "status"},
		),

		LevelLocksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: tutorSubsystem,
				Name:      "level_locks_total",
				Help:      "Total level lock events by parse outcome",
			},
			[]string{"outcome"},
		),

		LockedLevels: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: tutorSubsystem,
				Name:      "locked_levels",
				Help:      "Distribution of locked understanding levels",
				Buckets:   []float64{1, 2, 3, 4, 5},
			},
		),

		DialogueLatencySeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: tutorSubsystem,
				Name:      "dialogue_latency_seconds",
				Help:      "Dialogue generation latency by actor role",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"role"},
		),

		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: tutorSubsystem,
				Name:      "active_sessions",
				Help:      "Number of sessions currently held in the store",
			},
		),

		EvictionsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: tutorSubsystem,
				Name:      "evictions_total",
				Help:      "Total idle sessions evicted by the janitor",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: tutorSubsystem,
				Name:      "errors_total",
				Help:      "Total errors by component and error code",
			},
			[]string{"component", "error_code"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Label Values
// =============================================================================

// LockOutcome categorizes how a locked level was obtained.
type LockOutcome string

const (
	// LockOutcomeParsed means the judge returned valid structured JSON.
	LockOutcomeParsed LockOutcome = "parsed"

	// LockOutcomeDigitFallback means the level was scavenged from free text.
	LockOutcomeDigitFallback LockOutcome = "digit_fallback"

	// LockOutcomeDefault means judgment failed and the fixed default was used.
	LockOutcomeDefault LockOutcome = "default"
)

// ErrorCode represents a categorized error type for metrics.
type ErrorCode string

const (
	// ErrorCodeValidation indicates request validation failure.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeLLMError indicates LLM API failure.
	ErrorCodeLLMError ErrorCode = "llm_error"

	// ErrorCodeTimeout indicates operation timeout.
	ErrorCodeTimeout ErrorCode = "timeout"

	// ErrorCodeSessionComplete indicates a turn sent to a finished session.
	ErrorCodeSessionComplete ErrorCode = "session_complete"

	// ErrorCodeNotFound indicates an unknown session/student/topic.
	ErrorCodeNotFound ErrorCode = "not_found"

	// ErrorCodeInternal indicates internal server error.
	ErrorCodeInternal ErrorCode = "internal"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordTurn records one executed tutor turn.
func (m *TutorMetrics) RecordTurn(phase string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.TurnsTotal.WithLabelValues(phase, status).Inc()
}

// RecordLevelLock records a level lock event and the resulting level.
func (m *TutorMetrics) RecordLevelLock(outcome LockOutcome, level int) {
	m.LevelLocksTotal.WithLabelValues(string(outcome)).Inc()
	m.LockedLevels.Observe(float64(level))
}

// RecordDialogueLatency records one LLM call's duration by actor role.
func (m *TutorMetrics) RecordDialogueLatency(role string, seconds float64) {
	m.DialogueLatencySeconds.WithLabelValues(role).Observe(seconds)
}

// RecordError records a categorized failure.
func (m *TutorMetrics) RecordError(component string, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(component, string(code)).Inc()
}
