// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import "strings"

// matchScore ranks how well name matches query. Lower is better; -1 means
// no match.
//
//	Score = base_score * 10000 + position_penalty * 100 + length_penalty
//
// Base scores: 0 exact (case-insensitive), 1 prefix, 2 camelCase word,
// 3 substring, 4 fuzzy.
func matchScore(query, name string) int {
	queryLower := strings.ToLower(query)
	nameLower := strings.ToLower(name)

	if nameLower == queryLower {
		return 0
	}

	var baseScore, matchPos int
	switch {
	case strings.HasPrefix(nameLower, queryLower):
		baseScore = 1
	case camelCaseWordMatch(name, query) >= 0:
		baseScore = 2
		matchPos = camelCaseWordMatch(name, query)
	case strings.Contains(nameLower, queryLower):
		baseScore = 3
		matchPos = strings.Index(nameLower, queryLower)
	default:
		threshold := max(2, len(queryLower)/3)
		if levenshteinDistance(nameLower, queryLower) > threshold {
			return -1
		}
		baseScore = 4
	}

	positionPenalty := 0
	if len(name) > 0 && matchPos > 0 {
		positionPenalty = min(99, (matchPos*100)/len(name))
	}
	lengthPenalty := min(99, abs(len(name)-len(query)))

	return baseScore*10000 + positionPenalty*100 + lengthPenalty
}

// camelCaseWordMatch finds query at a camelCase word boundary of name.
//
//	"Value" matches "getValue" at position 3
//	"value" does not match "revalue" (not a word boundary)
//
// Returns the position of the match, or -1.
func camelCaseWordMatch(name, query string) int {
	if len(query) == 0 || len(name) == 0 {
		return -1
	}
	queryLower := strings.ToLower(query)

	for i := 0; i < len(name); i++ {
		boundary := i == 0 || (isUpper(name[i]) && !isUpper(name[i-1]))
		if !boundary || i+len(query) > len(name) {
			continue
		}
		if strings.ToLower(name[i:i+len(query)]) != queryLower {
			continue
		}
		end := i + len(query)
		if end == len(name) || isUpper(name[end]) || !isLetter(name[end]) {
			return i
		}
	}
	return -1
}

func isUpper(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// levenshteinDistance calculates the edit distance between two strings
// using two rows.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,
				curr[j-1]+1,
				prev[j-1]+cost,
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
