// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/handlers"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/middleware"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/roster"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/services"
)

// SetupRoutes registers every HTTP route on the router. An empty apiKey
// leaves the /v1 group unguarded; /health and /metrics are always open.
func SetupRoutes(router *gin.Engine, svc *services.TutorService, catalog *roster.Roster, apiKey string) {
	router.GET("/health", handlers.HealthCheck())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.APIKeyMiddleware(apiKey))
	{
		// Session lifecycle and turn routes
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handlers.HandleStartSession(svc))
			sessions.GET("", handlers.HandleListSessions(svc))
			sessions.GET("/:sessionId", handlers.HandleGetSession(svc))
			sessions.DELETE("/:sessionId", handlers.HandleDeleteSession(svc))
			sessions.GET("/:sessionId/level", handlers.HandleGetLevel(svc))
			sessions.POST("/:sessionId/turns", handlers.HandleAdvanceTurn(svc))
			sessions.POST("/:sessionId/tutor-turn", handlers.HandleGenerateTutorTurn(svc))
		}
		// Roster routes
		students := v1.Group("/students")
		{
			students.GET("", handlers.HandleListStudents(catalog))
			students.GET("/:studentId", handlers.HandleGetStudent(catalog))
		}
	}
}
