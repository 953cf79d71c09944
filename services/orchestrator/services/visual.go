// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package services

import (
	"regexp"
	"strings"
)

// visualTagPattern matches the inline illustration directive a tutor
// message may carry, e.g. <visual>a pie cut into quarters</visual>.
var visualTagPattern = regexp.MustCompile(`(?s)<visual>(.*?)</visual>`)

// ExtractVisualAid splits a tutor message into dialogue text and an
// optional visual-aid description. Only the first tag's description is
// honored; every tag is stripped from the dialogue text either way.
func ExtractVisualAid(text string) (dialogue, visualAid string) {
	matches := visualTagPattern.FindAllStringSubmatch(text, -1)
	if len(matches) > 0 {
		visualAid = strings.TrimSpace(matches[0][1])
	}
	dialogue = visualTagPattern.ReplaceAllString(text, "")
	dialogue = strings.TrimSpace(collapseBlankRuns(dialogue))
	return dialogue, visualAid
}

// collapseBlankRuns squeezes the blank-line runs left behind by stripped
// tags down to a single blank line.
func collapseBlankRuns(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}
