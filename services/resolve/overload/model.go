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

import (
	"sort"
	"strings"
)

// Type is an opaque handle to a type owned by a TypeSystem.
//
// Two handles denote the same type exactly when their keys are equal.
type Type interface {
	// Key returns the canonical form of the type.
	Key() string

	// String returns the display form of the type.
	String() string
}

// TypeParam names a type parameter of a class or method.
//
// Owner disambiguates parameters that share a name, for example the T of
// List and the T of a generic method. It is the qualified class name for
// class parameters and the method ID for method parameters.
type TypeParam struct {
	Name  string
	Owner string
}

// String returns the parameter name.
func (p TypeParam) String() string {
	return p.Name
}

// Substitution maps type parameters to the types they stand for.
//
// A nil Substitution is the identity.
type Substitution map[TypeParam]Type

// Equal reports whether two substitutions bind the same parameters to
// identical types.
func (s Substitution) Equal(other Substitution) bool {
	if len(s) != len(other) {
		return false
	}
	for p, t := range s {
		o, ok := other[p]
		if !ok || !sameType(t, o) {
			return false
		}
	}
	return true
}

// String renders the substitution deterministically.
func (s Substitution) String() string {
	if len(s) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(s))
	for p, t := range s {
		parts = append(parts, p.Name+"->"+typeString(t))
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ", ") + "}"
}

// Class identifies a declared class or interface.
//
// The resolver compares classes by pointer identity first and by qualified
// name second, so a TypeSystem may hand out one *Class per declaration.
type Class struct {
	QualifiedName string
	Interface     bool
}

// String returns the qualified name.
func (c *Class) String() string {
	if c == nil {
		return "<nil>"
	}
	return c.QualifiedName
}

// Method is a declared method.
//
// Params holds the declared parameter types. For a variable-arity method
// the last entry is the array type of the trailing parameter.
type Method struct {
	ID         string
	Name       string
	Class      *Class
	Params     []Type
	Return     Type
	TypeParams []TypeParam
	VarArgs    bool
	Static     bool
	Abstract   bool
}

// ParamCount returns the number of declared parameters.
func (m *Method) ParamCount() int {
	return len(m.Params)
}

// String renders the method as Class.name(params).
func (m *Method) String() string {
	var sb strings.Builder
	if m.Class != nil {
		sb.WriteString(m.Class.QualifiedName)
		sb.WriteByte('.')
	}
	sb.WriteString(m.Name)
	sb.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		if m.VarArgs && i == len(m.Params)-1 {
			s := typeString(p)
			sb.WriteString(strings.TrimSuffix(s, "[]"))
			sb.WriteString("...")
			continue
		}
		sb.WriteString(typeString(p))
	}
	sb.WriteByte(')')
	return sb.String()
}

// ScopeKind says where lookup found a candidate.
type ScopeKind int

const (
	// ScopeNone is used for qualified calls where no lexical scope applies.
	ScopeNone ScopeKind = iota

	// ScopeClass means the candidate was found while searching a lexically
	// enclosing class.
	ScopeClass

	// ScopeStaticImport means the candidate came in through a static import.
	ScopeStaticImport
)

// String returns the scope kind name.
func (k ScopeKind) String() string {
	switch k {
	case ScopeNone:
		return "none"
	case ScopeClass:
		return "class"
	case ScopeStaticImport:
		return "static_import"
	default:
		return "unknown"
	}
}

// ResolveScope is the lexical scope a candidate was found in.
type ResolveScope struct {
	Kind  ScopeKind
	Class *Class
}

// Candidate is one method produced by name lookup, together with the facts
// lookup established about it.
type Candidate struct {
	// Method is the candidate method. Required.
	Method *Method

	// Substitution binds the declaring class's type parameters as seen from
	// the call site.
	Substitution Substitution

	// Inferred binds the method's own type parameters, when lookup already
	// inferred them from the arguments. May be nil.
	Inferred Substitution

	// StaticsScopeCorrect is false when an instance method is referenced
	// from a static context.
	StaticsScopeCorrect bool

	// Accessible is false when visibility rules forbid the call.
	Accessible bool

	// Scope is where lookup found the candidate.
	Scope ResolveScope

	level      ApplicabilityLevel
	levelKnown bool
}

// Level returns the applicability level assigned by the most recent
// ClassifyApplicability pass, and whether one was assigned.
func (c *Candidate) Level() (ApplicabilityLevel, bool) {
	return c.level, c.levelKnown
}

// Equal reports whether two candidates denote the same method under the
// same substitution. Lookup facts such as scope are not compared.
func (c *Candidate) Equal(other *Candidate) bool {
	if c == other {
		return true
	}
	if c == nil || other == nil {
		return false
	}
	return c.Method == other.Method && c.Substitution.Equal(other.Substitution)
}

// String renders the candidate for logs.
func (c *Candidate) String() string {
	if c == nil || c.Method == nil {
		return "<nil>"
	}
	return c.Method.String()
}

// ArgumentTypes are the static types of the call's arguments in order.
//
// A nil entry means the argument's type is not known.
type ArgumentTypes []Type

// ApplicabilityLevel grades how a candidate accepts the arguments.
//
// Levels are ordered by preference: a higher value is a better match.
type ApplicabilityLevel int

const (
	// NotApplicable means the arguments cannot be passed at all.
	NotApplicable ApplicabilityLevel = iota

	// Varargs means the call only works through variable-arity expansion.
	Varargs

	// WithBoxing means the call needs boxing or unboxing conversions.
	WithBoxing

	// Strict means the call works with subtyping and widening alone.
	Strict
)

// String returns the level name.
func (l ApplicabilityLevel) String() string {
	switch l {
	case NotApplicable:
		return "not_applicable"
	case Varargs:
		return "varargs"
	case WithBoxing:
		return "with_boxing"
	case Strict:
		return "strict"
	default:
		return "unknown"
	}
}

// Specifics is the verdict of comparing two candidates.
type Specifics int

const (
	// Neither means no candidate is more specific.
	Neither Specifics = iota

	// FirstMoreSpecific means the first candidate wins.
	FirstMoreSpecific

	// SecondMoreSpecific means the second candidate wins.
	SecondMoreSpecific
)

// String returns the verdict name.
func (s Specifics) String() string {
	switch s {
	case FirstMoreSpecific:
		return "first"
	case SecondMoreSpecific:
		return "second"
	default:
		return "neither"
	}
}

// Signature is a method name plus parameter types after substitution.
type Signature struct {
	Name           string
	Params         []Type
	TypeParamCount int
}

// Key returns a canonical string for map lookups. Two signatures with the
// same key are treated as the same signature.
func (s Signature) Key() string {
	var sb strings.Builder
	sb.WriteString(s.Name)
	sb.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		if p == nil {
			sb.WriteByte('?')
			continue
		}
		sb.WriteString(p.Key())
	}
	sb.WriteByte(')')
	return sb.String()
}

func sameType(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}

func typeString(t Type) string {
	if t == nil {
		return "?"
	}
	return t.String()
}
