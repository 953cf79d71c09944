// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package eventlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLogger_AppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events", "conversations.jsonl")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	require.NoError(t, logger.Log(EventSessionStart, "sess-1", 0, map[string]string{"student_id": "s1"}))
	require.NoError(t, logger.Log(EventTurn, "sess-1", 1, map[string]string{"tutor_message": "hi"}))
	require.NoError(t, logger.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, records, 2)
	assert.Equal(t, EventSessionStart, records[0].Event)
	assert.Equal(t, int64(1), records[0].Sequence)
	assert.Equal(t, EventTurn, records[1].Event)
	assert.Equal(t, int64(2), records[1].Sequence)
	assert.Equal(t, "sess-1", records[1].SessionId)
	assert.Equal(t, 1, records[1].Turn)
	assert.NotEmpty(t, records[0].Timestamp)
}

func TestFileLogger_OwnerOnlyPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	assert.NoError(t, l.Log(EventTurn, "x", 1, nil))
	assert.NoError(t, l.Close())
}
