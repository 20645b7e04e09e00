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

// Substitute implements overload.TypeSystem.
func (u *Universe) Substitute(t overload.Type, sub overload.Substitution) overload.Type {
	if t == nil || len(sub) == 0 {
		return t
	}
	switch x := t.(type) {
	case *TypeVar:
		if r, ok := sub[x.Param]; ok && r != nil {
			return r
		}
		return x
	case *ArrayType:
		elem := u.Substitute(x.Elem, sub)
		if elem == x.Elem {
			return x
		}
		return &ArrayType{Elem: elem}
	case *ClassType:
		if len(x.Args) == 0 {
			return x
		}
		changed := false
		args := make([]overload.Type, len(x.Args))
		for i, a := range x.Args {
			args[i] = u.Substitute(a, sub)
			if args[i] != a {
				changed = true
			}
		}
		if !changed {
			return x
		}
		return &ClassType{Decl: x.Decl, Args: args}
	}
	return t
}

// Erasure implements overload.TypeSystem. The erasure of a type parameter
// is the erasure of its first bound.
func (u *Universe) Erasure(p overload.TypeParam) overload.Type {
	return u.EraseType(u.Bounds(p)[0])
}

// EraseType strips type arguments and replaces type variables by their
// erasure.
func (u *Universe) EraseType(t overload.Type) overload.Type {
	switch x := t.(type) {
	case *TypeVar:
		return u.eraseVar(x.Param, map[overload.TypeParam]bool{})
	case *ArrayType:
		return &ArrayType{Elem: u.EraseType(x.Elem)}
	case *ClassType:
		if len(x.Args) == 0 {
			return x
		}
		return &ClassType{Decl: x.Decl}
	}
	return t
}

// eraseVar guards against bounds that mention the variable itself.
func (u *Universe) eraseVar(p overload.TypeParam, visiting map[overload.TypeParam]bool) overload.Type {
	if visiting[p] {
		return u.Object()
	}
	visiting[p] = true
	first := u.Bounds(p)[0]
	if v, ok := first.(*TypeVar); ok {
		return u.eraseVar(v.Param, visiting)
	}
	return u.EraseType(first)
}

// InferTypeArguments implements overload.TypeSystem.
//
// Description:
//
//	Each formal is matched structurally against its actual. A type
//	variable from params binds to the first actual it meets; primitives
//	are boxed first. Arrays match element-wise and class types match
//	argument-wise after viewing the actual as the formal's class.
//	Parameters left unbound are bound to their erasure.
//
// Inputs:
//
//	params - The type parameters to infer.
//	formals - Parameter types mentioning params.
//	actuals - Types to match against. Shorter than formals is allowed.
//
// Outputs:
//
//	overload.Substitution - A binding for every parameter in params.
func (u *Universe) InferTypeArguments(params []overload.TypeParam, formals, actuals []overload.Type) overload.Substitution {
	wanted := make(map[overload.TypeParam]bool, len(params))
	for _, p := range params {
		wanted[p] = true
	}
	sub := make(overload.Substitution, len(params))
	for i, f := range formals {
		if i >= len(actuals) {
			break
		}
		u.unify(f, actuals[i], wanted, sub)
	}
	for _, p := range params {
		if _, ok := sub[p]; !ok {
			sub[p] = u.Erasure(p)
		}
	}
	return sub
}

func (u *Universe) unify(formal, actual overload.Type, wanted map[overload.TypeParam]bool, sub overload.Substitution) {
	if formal == nil || actual == nil {
		return
	}
	switch f := formal.(type) {
	case *TypeVar:
		if !wanted[f.Param] {
			return
		}
		if _, bound := sub[f.Param]; bound {
			return
		}
		switch a := actual.(type) {
		case *PrimitiveType:
			if boxed, ok := u.Boxed(a); ok {
				sub[f.Param] = boxed
			}
		case *NullType:
		default:
			sub[f.Param] = actual
		}
	case *ArrayType:
		if a, ok := actual.(*ArrayType); ok {
			u.unify(f.Elem, a.Elem, wanted, sub)
		}
	case *ClassType:
		a, ok := actual.(*ClassType)
		if !ok || len(f.Args) == 0 {
			return
		}
		sup := u.AsSuper(a, f.Decl)
		if sup == nil || len(sup.Args) != len(f.Args) {
			return
		}
		for i := range f.Args {
			u.unify(f.Args[i], sup.Args[i], wanted, sub)
		}
	}
}

// mentionsVar reports whether t contains any type variable.
func mentionsVar(t overload.Type) bool {
	switch x := t.(type) {
	case *TypeVar:
		return true
	case *ArrayType:
		return mentionsVar(x.Elem)
	case *ClassType:
		for _, a := range x.Args {
			if mentionsVar(a) {
				return true
			}
		}
	}
	return false
}

// eraseVars erases every type variable left in t.
func (u *Universe) eraseVars(t overload.Type) overload.Type {
	if t == nil || !mentionsVar(t) {
		return t
	}
	switch x := t.(type) {
	case *TypeVar:
		return u.Erasure(x.Param)
	case *ArrayType:
		return &ArrayType{Elem: u.eraseVars(x.Elem)}
	case *ClassType:
		return &ClassType{Decl: x.Decl}
	}
	return t
}
