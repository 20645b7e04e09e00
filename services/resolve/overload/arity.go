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

// FilterArity drops candidates whose parameter count cannot match argCount.
//
// Description:
//
//	A candidate matches when it is variable-arity or declares exactly
//	argCount parameters. Non-matching candidates seen before the first
//	match are held back; when a match appears they are deleted together,
//	and every later non-match is deleted as it is seen. If nothing
//	matches, the list is returned untouched with matched=false.
//
//	With relaxed=false, reaching a candidate whose StaticsScopeCorrect is
//	false stops the pass at once and reports matched=true with the list as
//	it stands. The static-context problem is then left for later passes to
//	rank rather than being hidden behind an arity error.
//
// Inputs:
//
//	candidates - The working list. Reordered and shortened in place.
//	argCount - The number of call arguments.
//	relaxed - Whether statics problems are ignored.
//
// Outputs:
//
//	[]*Candidate - The remaining candidates.
//	bool - Whether at least one candidate matched.
func (r *Resolver) FilterArity(candidates []*Candidate, argCount int, relaxed bool) ([]*Candidate, bool) {
	matched := false
	var pending []int

	for i := 0; i < len(candidates); i++ {
		c := candidates[i]
		if !relaxed && !c.StaticsScopeCorrect {
			return candidates, true
		}

		m := c.Method
		if m.VarArgs || m.ParamCount() == argCount {
			for k := len(pending) - 1; k >= 0; k-- {
				candidates = removeAt(candidates, pending[k])
				i--
			}
			pending = nil
			matched = true
			continue
		}

		if matched {
			candidates = removeAt(candidates, i)
			i--
			continue
		}
		pending = append(pending, i)
	}
	return candidates, matched
}
