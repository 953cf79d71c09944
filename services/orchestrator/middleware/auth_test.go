// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

func newGuardedRouter(apiKey string) *gin.Engine {
	r := gin.New()
	r.Use(APIKeyMiddleware(apiKey))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func doRequest(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/ping", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// =============================================================================
// extractBearerToken Tests
// =============================================================================

func TestExtractBearerToken_ValidToken(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.Header.Set("Authorization", "Bearer abc123")

	assert.Equal(t, "abc123", extractBearerToken(c))
}

func TestExtractBearerToken_CaseInsensitivePrefix(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.Header.Set("Authorization", "bearer ABC123")

	assert.Equal(t, "ABC123", extractBearerToken(c))
}

func TestExtractBearerToken_MissingHeader(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)

	assert.Equal(t, "", extractBearerToken(c))
}

func TestExtractBearerToken_MalformedHeader(t *testing.T) {
	for _, header := range []string{"Bearer", "Basic abc123", "abc123"} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/", nil)
		c.Request.Header.Set("Authorization", header)

		assert.Equal(t, "", extractBearerToken(c), "header %q", header)
	}
}

// =============================================================================
// APIKeyMiddleware Tests
// =============================================================================

func TestAPIKeyMiddleware_NoKeyConfiguredAllowsAll(t *testing.T) {
	r := newGuardedRouter("")

	w := doRequest(r, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, "Bearer whatever")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyMiddleware_ValidKey(t *testing.T) {
	r := newGuardedRouter("secret-key")

	w := doRequest(r, "Bearer secret-key")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyMiddleware_InvalidKeyRejected(t *testing.T) {
	r := newGuardedRouter("secret-key")

	w := doRequest(r, "Bearer wrong-key")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "unauthorized")
}

func TestAPIKeyMiddleware_MissingHeaderRejected(t *testing.T) {
	r := newGuardedRouter("secret-key")

	w := doRequest(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
