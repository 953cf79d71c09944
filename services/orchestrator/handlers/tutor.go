// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianTutor/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/roster"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/services"
	"github.com/AleutianAI/AleutianTutor/services/orchestrator/store"
)

var tutorTracer = otel.Tracer("aleutian.tutor.handlers")

// respondError maps service errors onto HTTP status codes. Dialogue
// failures are the only retryable class; everything else is a caller or
// state problem.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrSessionNotFound),
		errors.Is(err, roster.ErrUnknownStudent),
		errors.Is(err, roster.ErrUnknownTopic):
		c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrSessionComplete):
		c.JSON(http.StatusConflict, datatypes.ErrorResponse{Error: err.Error()})
	case services.IsDialogueError(err):
		c.JSON(http.StatusBadGateway, datatypes.ErrorResponse{Error: err.Error(), Retryable: true})
	default:
		slog.Error("Unhandled service error", "error", err)
		c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: "internal error"})
	}
}

// HandleStartSession creates a new tutoring session.
func HandleStartSession(svc *services.TutorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.StartSessionRequest
		if err := c.BindJSON(&req); err != nil {
			slog.Error("Failed to parse the start-session request", "error", err)
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		resp, err := svc.StartSession(&req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// HandleListSessions lists all live sessions.
func HandleListSessions(svc *services.TutorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": svc.ListSessions()})
	}
}

// HandleGetSession returns one session, transcript included.
func HandleGetSession(svc *services.TutorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := svc.GetSession(c.Param("sessionId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, sess)
	}
}

// HandleDeleteSession removes a session and its transcript.
func HandleDeleteSession(svc *services.TutorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionId := c.Param("sessionId")
		if err := svc.DeleteSession(sessionId); err != nil {
			respondError(c, err)
			return
		}
		slog.Info("Session deleted", "session_id", sessionId)
		c.JSON(http.StatusOK, gin.H{"status": "success", "deleted_session_id": sessionId})
	}
}

// HandleGetLevel reports the session's level lock: pending while the
// diagnostic phase is still gathering signal, locked afterwards.
func HandleGetLevel(svc *services.TutorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := svc.GetLevel(c.Param("sessionId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// HandleAdvanceTurn submits a tutor message and runs one full turn.
func HandleAdvanceTurn(svc *services.TutorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tutorTracer.Start(c.Request.Context(), "HandleAdvanceTurn")
		defer span.End()

		var req datatypes.AdvanceTurnRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the turn request", "error", err)
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		resp, err := svc.AdvanceTurn(ctx, c.Param("sessionId"), req.TutorMessage)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// HandleGenerateTutorTurn drafts the next tutor message without
// advancing the session.
func HandleGenerateTutorTurn(svc *services.TutorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tutorTracer.Start(c.Request.Context(), "HandleGenerateTutorTurn")
		defer span.End()

		resp, err := svc.GenerateTutorTurn(ctx, c.Param("sessionId"))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// HandleListStudents exposes the roster.
func HandleListStudents(catalog *roster.Roster) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"students": catalog.Students()})
	}
}

// HandleGetStudent returns one roster entry with its topics.
func HandleGetStudent(catalog *roster.Roster) gin.HandlerFunc {
	return func(c *gin.Context) {
		student, err := catalog.Student(c.Param("studentId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, student)
	}
}

// HealthCheck is the liveness probe.
func HealthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
