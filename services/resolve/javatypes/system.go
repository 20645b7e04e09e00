// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package javatypes

import "github.com/AleutianAI/AleutianResolve/services/resolve/overload"

var _ overload.TypeSystem = (*Universe)(nil)

// ComponentType implements overload.TypeSystem.
func (u *Universe) ComponentType(t overload.Type) (overload.Type, bool) {
	if a, ok := t.(*ArrayType); ok {
		return a.Elem, true
	}
	return nil, false
}

// IsRootType implements overload.TypeSystem.
func (u *Universe) IsRootType(t overload.Type) bool {
	c, ok := t.(*ClassType)
	return ok && c.Decl == u.object
}

// IsRootClass implements overload.TypeSystem.
func (u *Universe) IsRootClass(c *overload.Class) bool {
	return c != nil && c.QualifiedName == ObjectName
}

// IsInheritor implements overload.TypeSystem.
func (u *Universe) IsInheritor(sub, super *overload.Class) bool {
	sd, ok := u.DeclOf(sub)
	if !ok {
		return false
	}
	pd, ok := u.DeclOf(super)
	if !ok {
		return false
	}
	return u.inherits(sd, pd)
}

// Encloses implements overload.TypeSystem.
func (u *Universe) Encloses(outer, inner *overload.Class) bool {
	od, ok := u.DeclOf(outer)
	if !ok {
		return false
	}
	id, ok := u.DeclOf(inner)
	if !ok {
		return false
	}
	for d := id.Outer; d != nil; d = d.Outer {
		if d == od {
			return true
		}
	}
	return false
}

// IsSubsignature implements overload.TypeSystem. a is a subsignature of b
// when the parameter types are identical, or when a's parameters equal the
// erasure of b's.
func (u *Universe) IsSubsignature(a, b overload.Signature) bool {
	if a.Name != b.Name || len(a.Params) != len(b.Params) {
		return false
	}
	same := true
	for i := range a.Params {
		if !sameKey(a.Params[i], b.Params[i]) {
			same = false
			break
		}
	}
	if same {
		return true
	}
	for i := range a.Params {
		if !sameKey(a.Params[i], u.eraseOrNil(b.Params[i])) {
			return false
		}
	}
	return true
}

// IsSuperMethod implements overload.TypeSystem.
//
// Description:
//
//	super is overridden by sub when sub's class properly inherits super's
//	class, the names match and sub's parameters equal super's parameters
//	as seen from sub's class, or their erasure. Method type parameters of
//	super are renamed to sub's when both declare the same number.
func (u *Universe) IsSuperMethod(sub, super *overload.Method) bool {
	if sub == nil || super == nil || sub == super {
		return false
	}
	if sub.Name != super.Name || len(sub.Params) != len(super.Params) {
		return false
	}
	if super.Static {
		return false
	}
	sd, ok := u.DeclOf(sub.Class)
	if !ok {
		return false
	}
	pd, ok := u.DeclOf(super.Class)
	if !ok || !u.inherits(sd, pd) {
		return false
	}

	view := u.AsSuper(sd.ThisType(), pd)
	sub2 := make(overload.Substitution)
	if view != nil && len(view.Args) == len(pd.TypeParams) {
		for i, p := range pd.TypeParams {
			sub2[p] = view.Args[i]
		}
	} else {
		for _, p := range pd.TypeParams {
			sub2[p] = u.Erasure(p)
		}
	}
	if len(sub.TypeParams) == len(super.TypeParams) {
		for i, p := range super.TypeParams {
			sub2[p] = NewTypeVar(sub.TypeParams[i])
		}
	}

	superParams := make([]overload.Type, len(super.Params))
	for i, p := range super.Params {
		superParams[i] = u.Substitute(p, sub2)
	}
	return u.IsSubsignature(
		overload.Signature{Name: sub.Name, Params: sub.Params},
		overload.Signature{Name: super.Name, Params: superParams},
	)
}

// TypeParametersAgree implements overload.TypeSystem. Parameters without
// an inferred argument are not checked.
func (u *Universe) TypeParametersAgree(c *overload.Candidate) bool {
	m := c.Method
	if len(m.TypeParams) == 0 || len(c.Inferred) == 0 {
		return true
	}
	full := make(overload.Substitution, len(c.Substitution)+len(c.Inferred))
	for p, t := range c.Substitution {
		full[p] = t
	}
	for p, t := range c.Inferred {
		full[p] = t
	}
	for _, p := range m.TypeParams {
		arg, ok := c.Inferred[p]
		if !ok || arg == nil {
			continue
		}
		for _, bound := range u.Bounds(p) {
			b := u.eraseVars(u.Substitute(bound, full))
			if !u.Assignable(b, arg, false) {
				return false
			}
		}
	}
	return true
}

// Applicability implements overload.TypeSystem.
//
// Description:
//
//	A candidate is Strict when every argument converts to its parameter by
//	identity, widening or subtyping, WithBoxing when boxing or unboxing is
//	also needed, and Varargs when only spreading the trailing array
//	parameter works. Unknown argument types fit any parameter. Method type
//	parameters are inferred from the arguments unless the candidate
//	already carries inferred bindings.
func (u *Universe) Applicability(c *overload.Candidate, args overload.ArgumentTypes) overload.ApplicabilityLevel {
	m := c.Method
	n := len(args)
	declared := make([]overload.Type, len(m.Params))
	for i, p := range m.Params {
		declared[i] = u.Substitute(p, c.Substitution)
	}

	if n == len(declared) {
		params := u.instantiate(c, declared, args)
		if u.allFit(params, args, false) {
			return overload.Strict
		}
		if u.allFit(params, args, true) {
			return overload.WithBoxing
		}
	}

	if m.VarArgs && len(declared) > 0 && n >= len(declared)-1 {
		last := declared[len(declared)-1]
		elem, ok := u.ComponentType(last)
		if !ok {
			return overload.NotApplicable
		}
		expanded := make([]overload.Type, n)
		copy(expanded, declared[:len(declared)-1])
		for i := len(declared) - 1; i < n; i++ {
			expanded[i] = elem
		}
		params := u.instantiate(c, expanded, args)
		if u.allFit(params, args, true) {
			return overload.Varargs
		}
	}
	return overload.NotApplicable
}

// instantiate binds method type parameters and erases whatever type
// variables remain.
func (u *Universe) instantiate(c *overload.Candidate, params []overload.Type, args overload.ArgumentTypes) []overload.Type {
	m := c.Method
	out := make([]overload.Type, len(params))
	var sub overload.Substitution
	if len(m.TypeParams) > 0 {
		sub = c.Inferred
		if len(sub) == 0 {
			sub = u.InferTypeArguments(m.TypeParams, params, args)
		}
	}
	for i, p := range params {
		out[i] = u.eraseVars(u.Substitute(p, sub))
	}
	return out
}

func (u *Universe) allFit(params []overload.Type, args overload.ArgumentTypes, boxing bool) bool {
	for i, p := range params {
		a := args[i]
		if a == nil {
			continue
		}
		if !u.Assignable(p, a, boxing) {
			return false
		}
	}
	return true
}

func (u *Universe) eraseOrNil(t overload.Type) overload.Type {
	if t == nil {
		return nil
	}
	return u.EraseType(t)
}

func sameKey(a, b overload.Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}
