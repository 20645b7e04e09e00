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

// DeduplicateSignatures removes candidates that duplicate another
// candidate's signature.
//
// Description:
//
//	Lookup reaches the same logical method many times: once per declaring
//	class in an override chain, once per path through the hierarchy, once
//	per lexical scope. This pass keeps one representative of each.
//
//	First, every non-static candidate that another candidate overrides is
//	removed. Methods of the root class do not count as overridden by
//	interface methods. Then candidates are grouped by substituted
//	signature and each later entry is weighed against the group's current
//	representative:
//
//	  - an interface method beats a same-signature root class method,
//	    whichever was seen first;
//	  - the same method found in a strictly enclosing scope replaces an
//	    inaccessible representative;
//	  - a candidate whose method type arguments violate their bounds loses
//	    to one whose arguments satisfy them, unless one overrides the other;
//	  - between related declaring classes an array parameter beats a
//	    non-array one at the same position, and a strictly wider return type
//	    loses;
//	  - between unrelated supertypes of the call qualifier, the narrower
//	    return type wins unless that would prefer an interface over a class.
//
//	Only one member of a pair is ever removed.
//
// Inputs:
//
//	candidates - The working list. Shortened in place.
//	qualifier - The qualifier class of the call, or nil.
//
// Outputs:
//
//	[]*Candidate - The remaining candidates.
func (r *Resolver) DeduplicateSignatures(candidates []*Candidate, qualifier *Class) []*Candidate {
	overridden := r.overriddenMethods(candidates)
	representative := make(map[string]*Candidate, len(candidates))

	for i := 0; i < len(candidates); i++ {
		c := candidates[i]
		m := c.Method

		if !m.Static && overridden[m] {
			candidates = removeAt(candidates, i)
			i--
			continue
		}

		key := r.signatureOf(c).Key()
		existing, ok := representative[key]
		if !ok {
			representative[key] = c
			continue
		}
		em := existing.Method

		if m.Class.Interface && r.types.IsRootClass(em.Class) {
			representative[key] = c
			if j := indexOf(candidates, existing); j >= 0 {
				candidates = removeAt(candidates, j)
				i--
			}
			continue
		}
		if em.Class.Interface && r.types.IsRootClass(m.Class) {
			candidates = removeAt(candidates, i)
			i--
			continue
		}

		if m == em && r.enclosingScopeWins(c, existing) {
			representative[key] = c
			continue
		}

		agrees := r.types.TypeParametersAgree(c)
		existingAgrees := r.types.TypeParametersAgree(existing)
		if existingAgrees && !agrees && !r.types.IsSuperMethod(m, em) {
			candidates = removeAt(candidates, i)
			i--
			continue
		}
		if agrees && !existingAgrees && !r.types.IsSuperMethod(em, m) {
			representative[key] = c
			if j := indexOf(candidates, existing); j >= 0 {
				candidates = removeAt(candidates, j)
				i--
			}
			continue
		}

		if r.inheritorOrSelf(m.Class, em.Class) || r.inheritorOrSelf(em.Class, m.Class) {
			if r.prefersArrayParams(m, em) {
				representative[key] = c
				continue
			}
			ret := r.types.Substitute(m.Return, c.Substitution)
			existingRet := r.types.Substitute(em.Return, existing.Substitution)
			if ret != nil && existingRet != nil && !sameType(ret, existingRet) && r.types.IsAssignable(ret, existingRet) {
				candidates = removeAt(candidates, i)
				i--
				continue
			}
			representative[key] = c
			continue
		}

		if qualifier == nil || !r.inheritorOrSelf(qualifier, m.Class) || !r.inheritorOrSelf(qualifier, em.Class) {
			continue
		}
		ret := r.types.Substitute(m.Return, c.Substitution)
		existingRet := r.types.Substitute(em.Return, existing.Substitution)
		if ret == nil || existingRet == nil || sameType(ret, existingRet) {
			continue
		}
		switch {
		case r.types.IsAssignable(existingRet, ret):
			if m.Class.Interface && !em.Class.Interface {
				continue
			}
			representative[key] = c
			if j := indexOf(candidates, existing); j >= 0 {
				candidates = removeAt(candidates, j)
				i--
			}
		case r.types.IsAssignable(ret, existingRet):
			if em.Class.Interface && !m.Class.Interface {
				continue
			}
			candidates = removeAt(candidates, i)
			i--
		}
	}
	return candidates
}

// signatureOf returns the candidate's signature under its class
// substitution.
func (r *Resolver) signatureOf(c *Candidate) Signature {
	m := c.Method
	params := make([]Type, len(m.Params))
	for i, p := range m.Params {
		params[i] = r.types.Substitute(p, c.Substitution)
	}
	return Signature{Name: m.Name, Params: params, TypeParamCount: len(m.TypeParams)}
}

// overriddenMethods collects every method that another candidate overrides.
func (r *Resolver) overriddenMethods(candidates []*Candidate) map[*Method]bool {
	out := make(map[*Method]bool)
	for _, c := range candidates {
		for _, other := range candidates {
			if other.Method == c.Method {
				continue
			}
			if !r.types.IsSuperMethod(c.Method, other.Method) {
				continue
			}
			if c.Method.Class.Interface && r.types.IsRootClass(other.Method.Class) {
				continue
			}
			out[other.Method] = true
		}
	}
	return out
}

func (r *Resolver) enclosingScopeWins(c, existing *Candidate) bool {
	if existing.Accessible {
		return false
	}
	if c.Scope.Kind != ScopeClass || existing.Scope.Kind != ScopeClass {
		return false
	}
	if c.Scope.Class == nil || existing.Scope.Class == nil {
		return false
	}
	return r.types.Encloses(c.Scope.Class, existing.Scope.Class)
}

// prefersArrayParams reports whether m declares an array at some position
// where other does not.
func (r *Resolver) prefersArrayParams(m, other *Method) bool {
	n := min(len(m.Params), len(other.Params))
	for i := 0; i < n; i++ {
		_, isArray := r.types.ComponentType(m.Params[i])
		_, otherArray := r.types.ComponentType(other.Params[i])
		if isArray && !otherArray {
			return true
		}
	}
	return false
}

func (r *Resolver) inheritorOrSelf(sub, super *Class) bool {
	return sameClass(sub, super) || r.types.IsInheritor(sub, super)
}

func sameClass(a, b *Class) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.QualifiedName == b.QualifiedName
}
