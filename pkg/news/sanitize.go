// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package news

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	// NewsAPI truncates content with a "[+1234 chars]" marker.
	truncationMarker = regexp.MustCompile(`\s*\[\+\d+ chars\]\s*$`)
	whitespace       = regexp.MustCompile(`\s+`)
)

// CleanText strips markup and entities from upstream text and collapses
// whitespace.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = strictPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	s = truncationMarker.ReplaceAllString(s, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
