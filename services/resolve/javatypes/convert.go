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

// widening lists, per primitive, the primitives it widens to.
var widening = map[*PrimitiveType][]*PrimitiveType{
	Byte:  {Short, Int, Long, Float, Double},
	Short: {Int, Long, Float, Double},
	Char:  {Int, Long, Float, Double},
	Int:   {Long, Float, Double},
	Long:  {Float, Double},
	Float: {Double},
}

// Widens reports whether from converts to to by identity or primitive
// widening.
func Widens(from, to *PrimitiveType) bool {
	if from == to {
		return from != Void
	}
	for _, w := range widening[from] {
		if w == to {
			return true
		}
	}
	return false
}

// Assignable reports whether a value of type from can be assigned to a
// variable of type to. With boxing false only identity, widening and
// subtyping are allowed.
func (u *Universe) Assignable(to, from overload.Type, boxing bool) bool {
	if to == nil || from == nil {
		return false
	}
	if to.Key() == from.Key() {
		return to != Void
	}

	switch f := from.(type) {
	case *NullType:
		_, prim := to.(*PrimitiveType)
		return !prim

	case *PrimitiveType:
		if f == Void {
			return false
		}
		if tp, ok := to.(*PrimitiveType); ok {
			return Widens(f, tp)
		}
		if !boxing {
			return false
		}
		boxed, ok := u.Boxed(f)
		return ok && u.Assignable(to, boxed, false)

	case *ArrayType:
		switch t := to.(type) {
		case *ArrayType:
			_, toPrim := t.Elem.(*PrimitiveType)
			_, fromPrim := f.Elem.(*PrimitiveType)
			if toPrim || fromPrim {
				return t.Elem.Key() == f.Elem.Key()
			}
			return u.Assignable(t.Elem, f.Elem, false)
		case *ClassType:
			switch t.Decl.Name {
			case ObjectName, SerializableName, CloneableName:
				return true
			}
		}
		return false

	case *TypeVar:
		for _, b := range u.Bounds(f.Param) {
			if u.Assignable(to, b, boxing) {
				return true
			}
		}
		return false

	case *ClassType:
		switch t := to.(type) {
		case *PrimitiveType:
			if !boxing {
				return false
			}
			unboxed, ok := u.Unboxed(f)
			return ok && Widens(unboxed, t)
		case *ClassType:
			return u.classAssignable(t, f)
		}
		return false
	}
	return false
}

// classAssignable checks subtyping between class types. Raw types on
// either side match any parameterization.
func (u *Universe) classAssignable(to, from *ClassType) bool {
	sup := u.AsSuper(from, to.Decl)
	if sup == nil {
		return false
	}
	if len(to.Args) == 0 || len(sup.Args) == 0 {
		return true
	}
	if len(to.Args) != len(sup.Args) {
		return false
	}
	for i := range to.Args {
		if to.Args[i].Key() != sup.Args[i].Key() {
			return false
		}
	}
	return true
}

// IsAssignable implements overload.TypeSystem. Boxing is allowed.
func (u *Universe) IsAssignable(to, from overload.Type) bool {
	return u.Assignable(to, from, true)
}

// BoxingHappens implements overload.TypeSystem.
//
// Description:
//
//	Passing a primitive to a reference parameter, or a wrapper to a
//	primitive parameter, is boxing when the conversion is legal at all.
//	An unknown argument type counts as boxing exactly when param is
//	primitive.
func (u *Universe) BoxingHappens(arg, param overload.Type) bool {
	if param == nil {
		return false
	}
	paramPrim, paramIsPrim := param.(*PrimitiveType)
	if arg == nil {
		return paramIsPrim && paramPrim != Void
	}

	switch a := arg.(type) {
	case *PrimitiveType:
		if paramIsPrim || a == Void {
			return false
		}
		switch param.(type) {
		case *ClassType, *TypeVar:
			return u.Assignable(param, arg, true)
		}
		return false
	case *ClassType, *TypeVar:
		if !paramIsPrim {
			return false
		}
		return u.Assignable(param, a, true)
	}
	return false
}
