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

import "errors"

// ErrNilTypeSystem is returned by NewResolver when no TypeSystem is given.
var ErrNilTypeSystem = errors.New("type system must not be nil")

// TypeSystem answers the type questions the resolver asks.
//
// Description:
//
//	The resolver treats types as opaque. Every relation it needs is a
//	method here. Implementations must be deterministic and must tolerate
//	nil Type arguments where noted.
//
// Thread Safety:
//
//	Implementations must be safe for concurrent reads.
type TypeSystem interface {
	// Substitute applies sub to t. A nil sub returns t unchanged.
	Substitute(t Type, sub Substitution) Type

	// InferTypeArguments binds params by matching formals against actuals.
	// Nil actuals are skipped. Parameters that cannot be bound are bound to
	// their erasure.
	InferTypeArguments(params []TypeParam, formals, actuals []Type) Substitution

	// Erasure returns the erasure of a type parameter.
	Erasure(p TypeParam) Type

	// IsAssignable reports whether a value of type from may be assigned to a
	// variable of type to, allowing boxing and unboxing.
	IsAssignable(to, from Type) bool

	// BoxingHappens reports whether passing arg to param needs boxing or
	// unboxing. A nil arg means the argument type is unknown; boxing is then
	// assumed exactly when param is primitive.
	BoxingHappens(arg, param Type) bool

	// IsSubsignature reports whether a is a subsignature of b.
	IsSubsignature(a, b Signature) bool

	// ComponentType returns the element type of an array type.
	ComponentType(t Type) (Type, bool)

	// IsRootType reports whether t is the root object type.
	IsRootType(t Type) bool

	// IsRootClass reports whether c is the root object class.
	IsRootClass(c *Class) bool

	// IsInheritor reports whether sub is a proper subtype of super.
	IsInheritor(sub, super *Class) bool

	// Encloses reports whether outer lexically and strictly encloses inner.
	Encloses(outer, inner *Class) bool

	// IsSuperMethod reports whether super is overridden by sub.
	IsSuperMethod(sub, super *Method) bool

	// TypeParametersAgree reports whether the candidate's inferred method
	// type arguments satisfy their declared bounds.
	TypeParametersAgree(c *Candidate) bool

	// Applicability grades how the candidate accepts args.
	Applicability(c *Candidate, args ArgumentTypes) ApplicabilityLevel
}
