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

// ClassifyApplicability keeps only the candidates at the best level.
//
// Description:
//
//	Every candidate is graded by the TypeSystem and tagged with its level.
//	When all candidates share a level nothing is removed. Otherwise those
//	below the maximum are dropped. A maximum of NotApplicable removes
//	nothing, so the later passes see every inapplicable candidate.
//
// Inputs:
//
//	candidates - The working list. Shortened in place.
//	args - The call's argument types.
//
// Outputs:
//
//	[]*Candidate - The remaining candidates.
//	ApplicabilityLevel - The best level seen.
func (r *Resolver) ClassifyApplicability(candidates []*Candidate, args ArgumentTypes) ([]*Candidate, ApplicabilityLevel) {
	best := NotApplicable
	seen := false
	mixed := false

	for _, c := range candidates {
		level := r.types.Applicability(c, args)
		c.level = level
		c.levelKnown = true

		if seen && level != best {
			mixed = true
		}
		if !seen || level > best {
			best = level
		}
		seen = true
	}

	if !mixed {
		return candidates, best
	}
	for i := len(candidates) - 1; i >= 0; i-- {
		if candidates[i].level < best {
			candidates = removeAt(candidates, i)
		}
	}
	return candidates, best
}
