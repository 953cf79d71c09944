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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeResults(t *testing.T, results []SessionResult) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.jsonl")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, r := range results {
		require.NoError(t, enc.Encode(r))
	}
	return path
}

func TestScoreCommand(t *testing.T) {
	path := writeResults(t, []SessionResult{
		{SessionId: "a", PredictedLevel: 4, ExpectedLevel: 4},
		{SessionId: "b", PredictedLevel: 3, ExpectedLevel: 4},
		{SessionId: "c", PredictedLevel: 1, ExpectedLevel: 5},
		{SessionId: "d", PredictedLevel: 2}, // no ground truth
	})

	scoreInputPath = path
	err := runScore(nil, nil)
	assert.NoError(t, err)
}

func TestScoreCommandMissingFile(t *testing.T) {
	scoreInputPath = filepath.Join(t.TempDir(), "missing.jsonl")
	err := runScore(nil, nil)
	assert.Error(t, err)
}

func TestAppendResultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	res := SessionResult{SessionId: "s1", StudentId: "student_mia",
		TopicId: "topic_fractions", PredictedLevel: 3}
	require.NoError(t, appendResult(path, res))
	require.NoError(t, appendResult(path, res))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func countLines(data []byte) int {
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}
