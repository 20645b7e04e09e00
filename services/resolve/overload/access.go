// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package overload

// AccessRank packs the access facts of a candidate into a comparable value.
//
// Bit 2 is set when the candidate is accessible, bit 1 when it is correct
// for the static context and bit 0 when it did not come from a static
// import. Higher is better.
func AccessRank(c *Candidate) int {
	rank := 0
	if c.Accessible {
		rank |= 4
	}
	if c.StaticsScopeCorrect {
		rank |= 2
	}
	if c.Scope.Kind != ScopeStaticImport {
		rank |= 1
	}
	return rank
}

// RankAccessibility keeps only candidates with the highest AccessRank.
//
// The relative order of survivors is preserved. The input slice is
// shortened in place.
func (r *Resolver) RankAccessibility(candidates []*Candidate) []*Candidate {
	best := -1
	for _, c := range candidates {
		if rank := AccessRank(c); rank > best {
			best = rank
		}
	}
	for i := len(candidates) - 1; i >= 0; i-- {
		if AccessRank(candidates[i]) < best {
			candidates = removeAt(candidates, i)
		}
	}
	return candidates
}
