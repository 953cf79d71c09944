// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator provides the core tutoring service for AleutianTutor.
//
// This package contains the main service type that coordinates all
// components: HTTP routing, the LLM dialogue backend, the session store
// with idle eviction, the level-lock judge, and observability
// infrastructure.
//
// # Usage
//
//	cfg := orchestrator.Config{Port: 12310, LLMBackend: "ollama"}
//	svc, err := orchestrator.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svc.Run()
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/AleutianTutor/services/llm"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/assessment"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/eventlog"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/observability"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/roster"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/routes"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/services"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/store"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the tutoring service.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and
// should only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds tutoring service configuration options.
//
// All fields are optional; New() applies defaults for zero values.
type Config struct {
	// Port is the HTTP server port. Default: 12310
	Port int

	// LLMBackend specifies the dialogue provider.
	// Valid values: "ollama", "openai", "claude", "anthropic"
	// Default: "ollama"
	LLMBackend string

	// RosterPath is a YAML roster file. If empty, the built-in demo
	// roster is used.
	RosterPath string

	// EventLogPath is the JSONL session event log.
	// Default: "./logs/tutor_events.jsonl"
	EventLogPath string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "aleutian-otel-collector:4317"
	OTelEndpoint string

	// EnableMetrics enables the Prometheus metrics endpoint.
	// Default: true
	EnableMetrics bool

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	GinMode string

	// APIKey guards the /v1 routes with a static bearer key.
	// If empty, the API is open.
	APIKey string

	// JanitorInterval is how often idle sessions are swept.
	// Default: 10 minutes
	JanitorInterval time.Duration

	// SessionIdleTTL evicts sessions older than this since their last
	// activity. Default: 1 hour
	SessionIdleTTL time.Duration

	// DialogueTimeout bounds each LLM call during a turn.
	// Default: 60 seconds
	DialogueTimeout time.Duration
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Fields
//
//   - config: Service configuration
//   - router: Gin HTTP engine
//   - llmClient: Dialogue backend client
//   - sessionStore: In-memory session store
//   - janitor: Idle-session eviction scheduler
//   - events: Append-only session event log
//   - tutorService: The per-turn business logic
//   - tracerCleanup: Function to shutdown tracer on exit
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	config        Config
	router        *gin.Engine
	llmClient     llm.LLMClient
	catalog       *roster.Roster
	sessionStore  *store.MemoryStore
	janitor       *store.Janitor
	events        eventlog.Logger
	metrics       *observability.TutorMetrics
	tutorService  *services.TutorService
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a new tutoring Service with the given configuration.
//
// # Description
//
// New initializes all components in dependency order:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing
//  3. Initializes Prometheus metrics
//  4. Loads the student roster
//  5. Opens the session event log
//  6. Creates the session store and starts the idle-session janitor
//  7. Creates the LLM client and the level-lock judge
//  8. Sets up HTTP routes
//
// # Outputs
//
//   - Service: Ready-to-run tutoring service
//   - error: Non-nil if initialization fails
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	if s.config.EnableMetrics {
		s.metrics = observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics")
	}

	if err := s.initRoster(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	s.initEventLog()

	s.sessionStore = store.NewMemoryStore()
	s.initJanitor()

	if err := s.initLLMClient(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	judge := assessment.NewLLMJudge(s.llmClient, 0)
	s.tutorService = services.NewTutorService(s.sessionStore, s.llmClient, judge,
		s.catalog, s.events, s.metrics, s.config.DialogueTimeout)

	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
// Cleanup is automatic on return.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting tutor server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing. Callers must
// not modify the routes after construction.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12310
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "ollama"
	}
	if cfg.EventLogPath == "" {
		cfg.EventLogPath = "./logs/tutor_events.jsonl"
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "aleutian-otel-collector:4317"
	}
	cfg.EnableMetrics = true

	if cfg.JanitorInterval == 0 {
		cfg.JanitorInterval = 10 * time.Minute
	}
	if cfg.SessionIdleTTL == 0 {
		cfg.SessionIdleTTL = 1 * time.Hour
	}

	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// Uses an insecure gRPC connection, appropriate for internal networks.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("tutor-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initRoster loads the student roster from the configured YAML file, or
// falls back to the built-in demo roster.
func (s *service) initRoster() error {
	if s.config.RosterPath == "" {
		s.catalog = roster.Default()
		slog.Info("Using built-in demo roster", "students", len(s.catalog.Students()))
		return nil
	}

	catalog, err := roster.Load(s.config.RosterPath)
	if err != nil {
		return err
	}
	s.catalog = catalog
	slog.Info("Roster loaded", "path", s.config.RosterPath,
		"students", len(catalog.Students()))
	return nil
}

// initEventLog opens the JSONL session event log. A failure is not
// fatal; the service falls back to a no-op logger and slog still
// captures turn activity.
func (s *service) initEventLog() {
	logger, err := eventlog.NewFileLogger(s.config.EventLogPath)
	if err != nil {
		slog.Warn("Failed to open event log, continuing without it",
			"path", s.config.EventLogPath, "error", err)
		s.events = eventlog.NopLogger{}
		return
	}
	s.events = logger
	slog.Info("Session event log opened", "path", s.config.EventLogPath)
}

// initJanitor starts the background idle-session eviction scheduler.
func (s *service) initJanitor() {
	s.janitor = store.NewJanitor(s.sessionStore, store.JanitorConfig{
		Interval: s.config.JanitorInterval,
		IdleTTL:  s.config.SessionIdleTTL,
	})
	s.janitor.SetOnEvict(func(evicted []string) {
		if s.metrics == nil {
			return
		}
		s.metrics.EvictionsTotal.Add(float64(len(evicted)))
		s.metrics.ActiveSessions.Sub(float64(len(evicted)))
	})

	if err := s.janitor.Start(context.Background()); err != nil {
		slog.Warn("Session janitor failed to start", "error", err)
		return
	}
	slog.Info("Session janitor started",
		"interval", s.config.JanitorInterval.String(),
		"idle_ttl", s.config.SessionIdleTTL.String())
}

// initLLMClient creates the dialogue backend client.
func (s *service) initLLMClient() error {
	var err error
	s.llmClient, err = llm.NewClient(s.config.LLMBackend)
	if err != nil {
		return err
	}
	slog.Info("Using LLM backend", "backend", s.config.LLMBackend)
	return nil
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("tutor-service"))

	routes.SetupRoutes(s.router, s.tutorService, s.catalog, s.config.APIKey)
}

// cleanup releases all resources held by the service. Called when Run()
// exits or on initialization failure.
func (s *service) cleanup() {
	if s.janitor != nil {
		s.janitor.Stop()
	}

	if closer, ok := s.events.(*eventlog.FileLogger); ok {
		if err := closer.Close(); err != nil {
			slog.Warn("Event log close error", "error", err)
		}
	}

	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
