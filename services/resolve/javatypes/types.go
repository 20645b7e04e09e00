// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package javatypes is a small model of the Java type system: primitive,
// null, class, array and type-variable types over a Universe of declared
// classes.
//
// Universe implements overload.TypeSystem. It answers assignability
// (widening, subtyping, boxing and unboxing), substitution, erasure,
// generic inference by structural matching, and the inheritance queries
// the resolver needs. Wildcards, intersection types and capture
// conversion are not modelled.
package javatypes

import (
	"strings"

	"github.com/AleutianAI/AleutianResolve/services/resolve/overload"
)

// PrimitiveType is one of the eight primitive types, or void.
type PrimitiveType struct {
	name string
}

// Key returns the keyword.
func (p *PrimitiveType) Key() string { return p.name }

// String returns the keyword.
func (p *PrimitiveType) String() string { return p.name }

// Primitive types. They are singletons and compare by pointer.
var (
	Boolean = &PrimitiveType{name: "boolean"}
	Byte    = &PrimitiveType{name: "byte"}
	Short   = &PrimitiveType{name: "short"}
	Char    = &PrimitiveType{name: "char"}
	Int     = &PrimitiveType{name: "int"}
	Long    = &PrimitiveType{name: "long"}
	Float   = &PrimitiveType{name: "float"}
	Double  = &PrimitiveType{name: "double"}
	Void    = &PrimitiveType{name: "void"}
)

var primitivesByName = map[string]*PrimitiveType{
	"boolean": Boolean,
	"byte":    Byte,
	"short":   Short,
	"char":    Char,
	"int":     Int,
	"long":    Long,
	"float":   Float,
	"double":  Double,
	"void":    Void,
}

// NullType is the type of the null literal.
type NullType struct{}

// Null is the null type.
var Null = &NullType{}

// Key returns "null".
func (*NullType) Key() string { return "null" }

// String returns "null".
func (*NullType) String() string { return "null" }

// ClassType is a reference to a declared class, optionally parameterized.
//
// A ClassType without Args whose class declares type parameters is raw.
type ClassType struct {
	Decl *ClassDecl
	Args []overload.Type
}

// Key returns the qualified name with argument keys.
func (c *ClassType) Key() string {
	if len(c.Args) == 0 {
		return c.Decl.Name
	}
	var sb strings.Builder
	sb.WriteString(c.Decl.Name)
	sb.WriteByte('<')
	for i, a := range c.Args {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(a.Key())
	}
	sb.WriteByte('>')
	return sb.String()
}

// String returns the simple name with arguments.
func (c *ClassType) String() string {
	if len(c.Args) == 0 {
		return c.Decl.SimpleName()
	}
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return c.Decl.SimpleName() + "<" + strings.Join(parts, ", ") + ">"
}

// IsRaw reports whether the type omits the arguments its class declares.
func (c *ClassType) IsRaw() bool {
	return len(c.Args) == 0 && len(c.Decl.TypeParams) > 0
}

// ArrayType is an array of Elem.
type ArrayType struct {
	Elem overload.Type
}

// Key returns the element key followed by "[]".
func (a *ArrayType) Key() string { return a.Elem.Key() + "[]" }

// String returns the element display form followed by "[]".
func (a *ArrayType) String() string { return a.Elem.String() + "[]" }

// TypeVar is a use of a type parameter.
type TypeVar struct {
	Param overload.TypeParam
}

// Key includes the owner so that equally named parameters stay distinct.
func (v *TypeVar) Key() string { return v.Param.Owner + "::" + v.Param.Name }

// String returns the parameter name.
func (v *TypeVar) String() string { return v.Param.Name }

// NewArray returns the array type of elem.
func NewArray(elem overload.Type) *ArrayType {
	return &ArrayType{Elem: elem}
}

// NewTypeVar returns the type variable for p.
func NewTypeVar(p overload.TypeParam) *TypeVar {
	return &TypeVar{Param: p}
}

// PrimitiveByName returns the primitive type for a keyword.
func PrimitiveByName(name string) (*PrimitiveType, bool) {
	p, ok := primitivesByName[name]
	return p, ok
}
