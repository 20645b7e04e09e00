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

import "fmt"

// ResolveSpecifics removes every candidate that a strictly more specific
// rival dominates.
//
// Description:
//
//	Pairs are visited over a snapshot of the input: for each i and each
//	j < i, the candidate at i is compared with the one at j and the loser
//	is removed from the live list. Candidates already removed still take
//	part in later comparisons through the snapshot. The relation is not
//	transitive, so the result depends on list order.
//
//	Nothing is compared when level is NotApplicable.
//
// Inputs:
//
//	candidates - The working list. Shortened in place.
//	level - The shared applicability level of the candidates.
//	args - The call's argument types.
//
// Outputs:
//
//	[]*Candidate - The remaining candidates.
//
// Limitations:
//
//	Panics when the snapshot holds the same pointer twice.
func (r *Resolver) ResolveSpecifics(candidates []*Candidate, level ApplicabilityLevel, args ArgumentTypes) []*Candidate {
	if level == NotApplicable {
		return candidates
	}

	snapshot := make([]*Candidate, len(candidates))
	copy(snapshot, candidates)

	for i := 1; i < len(snapshot); i++ {
		a := snapshot[i]
		for j := 0; j < i; j++ {
			b := snapshot[j]
			if a == b {
				panic(fmt.Sprintf("overload: candidate %s listed twice", a))
			}
			switch r.Compare(a, b, level, args) {
			case FirstMoreSpecific:
				candidates = removeCandidate(candidates, b)
			case SecondMoreSpecific:
				candidates = removeCandidate(candidates, a)
			}
		}
	}
	return candidates
}

// Compare decides which of two same-level candidates is more specific.
//
// Description:
//
//	The parameter lists are aligned position by position. At the Varargs
//	level trailing variable-arity parameters are compared by element type,
//	except that two equally long variable-arity lists where either element
//	is the root type are compared as arrays. Generic methods are
//	instantiated against the non-generic side, or both erased when both
//	are generic.
//
//	A side that needs no boxing for the call's arguments beats a side that
//	needs some. Otherwise each position votes by assignability; an
//	incomparable position or a conflicting vote yields Neither. With no
//	votes at all the declaring classes decide, then the number of method
//	type parameters.
//
// Inputs:
//
//	a - The first candidate.
//	b - The second candidate.
//	level - The shared applicability level.
//	args - The call's argument types.
//
// Outputs:
//
//	Specifics - FirstMoreSpecific when a wins, SecondMoreSpecific when b
//	            wins, Neither otherwise.
func (r *Resolver) Compare(a, b *Candidate, level ApplicabilityLevel, args ArgumentTypes) Specifics {
	m1, m2 := a.Method, b.Method
	n := max(len(m1.Params), len(m2.Params))

	types1 := make([]Type, n)
	types2 := make([]Type, n)
	for i := 0; i < n; i++ {
		t1, vararg1 := paramAt(m1, i)
		t2, vararg2 := paramAt(m2, i)

		if level == Varargs {
			c1, ok1 := r.trailingComponent(t1, vararg1)
			c2, ok2 := r.trailingComponent(t2, vararg2)
			keepArrays := ok1 && ok2 && len(m1.Params) == len(m2.Params) &&
				(r.types.IsRootType(c1) || r.types.IsRootType(c2))
			if !keepArrays {
				if ok1 {
					t1 = c1
				}
				if ok2 {
					t2 = c2
				}
			}
		}

		types1[i] = r.types.Substitute(t1, a.Substitution)
		types2[i] = r.types.Substitute(t2, b.Substitution)
	}

	boxing1, boxing2 := 0, 0
	for i := 0; i < min(n, len(args)); i++ {
		arg := args[i]
		if types1[i] != nil && r.types.BoxingHappens(arg, types1[i]) {
			boxing1++
		}
		if types2[i] != nil && r.types.BoxingHappens(arg, types2[i]) {
			boxing2++
		}
	}

	generic1, generic2 := len(m1.TypeParams) > 0, len(m2.TypeParams) > 0
	switch {
	case generic1 && !generic2:
		sub := r.types.InferTypeArguments(m1.TypeParams, types1, types2)
		types1 = r.substituteAll(types1, sub)
	case generic2 && !generic1:
		sub := r.types.InferTypeArguments(m2.TypeParams, types2, types1)
		types2 = r.substituteAll(types2, sub)
	case generic1 && generic2:
		types1 = r.substituteAll(types1, r.erasures(m1.TypeParams))
		types2 = r.substituteAll(types2, r.erasures(m2.TypeParams))
	}

	if boxing1 == 0 && boxing2 > 0 {
		return FirstMoreSpecific
	}
	if boxing2 == 0 && boxing1 > 0 {
		return SecondMoreSpecific
	}

	verdict := Neither
	decided := false
	for i := 0; i < n; i++ {
		t1, t2 := types1[i], types2[i]
		if t1 == nil || t2 == nil {
			continue
		}
		firstNarrower := r.types.IsAssignable(t2, t1)
		secondNarrower := r.types.IsAssignable(t1, t2)
		if firstNarrower && secondNarrower {
			continue
		}
		if !firstNarrower && !secondNarrower {
			return Neither
		}
		pref := SecondMoreSpecific
		if firstNarrower {
			pref = FirstMoreSpecific
		}
		if decided && pref != verdict {
			return Neither
		}
		verdict = pref
		decided = true
	}
	if decided {
		return verdict
	}

	c1, c2 := m1.Class, m2.Class
	if !sameClass(c1, c2) {
		sig1 := r.signatureOf(a)
		sig2 := r.signatureOf(b)
		bothStatic := m1.Static && m2.Static
		switch {
		case r.types.IsInheritor(c2, c1) || (c1.Interface && !c2.Interface):
			if bothStatic || r.types.IsSubsignature(sig2, sig1) {
				return SecondMoreSpecific
			}
		case r.types.IsInheritor(c1, c2) || (c2.Interface && !c1.Interface):
			if bothStatic || r.types.IsSubsignature(sig1, sig2) {
				return FirstMoreSpecific
			}
		}
	}

	switch {
	case len(m1.TypeParams) < len(m2.TypeParams):
		return FirstMoreSpecific
	case len(m2.TypeParams) < len(m1.TypeParams):
		return SecondMoreSpecific
	default:
		return Neither
	}
}

// paramAt returns the declared parameter aligned with position i, repeating
// the last parameter past the end. The second result reports whether that
// parameter is the trailing variable-arity one.
func paramAt(m *Method, i int) (Type, bool) {
	if len(m.Params) == 0 {
		return nil, false
	}
	idx := min(i, len(m.Params)-1)
	return m.Params[idx], m.VarArgs && idx == len(m.Params)-1
}

func (r *Resolver) trailingComponent(t Type, vararg bool) (Type, bool) {
	if !vararg || t == nil {
		return nil, false
	}
	return r.types.ComponentType(t)
}

func (r *Resolver) substituteAll(types []Type, sub Substitution) []Type {
	out := make([]Type, len(types))
	for i, t := range types {
		if t == nil {
			continue
		}
		out[i] = r.types.Substitute(t, sub)
	}
	return out
}

func (r *Resolver) erasures(params []TypeParam) Substitution {
	sub := make(Substitution, len(params))
	for _, p := range params {
		sub[p] = r.types.Erasure(p)
	}
	return sub
}
