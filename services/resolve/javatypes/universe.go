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

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/AleutianAI/AleutianResolve/services/resolve/overload"
)

// Sentinel errors for universe construction.
var (
	// ErrFrozen is returned when a frozen universe is modified.
	ErrFrozen = errors.New("universe is frozen")

	// ErrDuplicateClass is returned when a class name is declared twice.
	ErrDuplicateClass = errors.New("class already declared")

	// ErrUnknownClass is returned when a name does not denote a class.
	ErrUnknownClass = errors.New("unknown class")

	// ErrCyclicHierarchy is returned when a supertype edge would create a
	// cycle.
	ErrCyclicHierarchy = errors.New("cyclic class hierarchy")

	// ErrTypeArgCount is returned when a parameterized type has the wrong
	// number of arguments.
	ErrTypeArgCount = errors.New("wrong number of type arguments")

	// ErrInvalidSupertype is returned for an illegal extends or implements
	// clause.
	ErrInvalidSupertype = errors.New("invalid supertype")
)

// Well-known class names.
const (
	ObjectName       = "java.lang.Object"
	StringName       = "java.lang.String"
	SerializableName = "java.io.Serializable"
	CloneableName    = "java.lang.Cloneable"
)

// ClassDecl is a declared class or interface.
type ClassDecl struct {
	// Name is the qualified name. Nested classes use '$' after the outer
	// class name, for example com.acme.Outer$Inner.
	Name string

	// Class is the identity handed to the overload package.
	Class *overload.Class

	// TypeParams are the declared type parameters in order.
	TypeParams []overload.TypeParam

	// Super is the direct superclass. Nil for interfaces and for the root.
	Super *ClassType

	// Interfaces are the directly implemented or extended interfaces.
	Interfaces []*ClassType

	// Outer is the lexically enclosing class, or nil for a top-level class.
	Outer *ClassDecl
}

// IsInterface reports whether the declaration is an interface.
func (d *ClassDecl) IsInterface() bool {
	return d.Class.Interface
}

// SimpleName returns the name after the last '.' or '$'.
func (d *ClassDecl) SimpleName() string {
	name := d.Name
	if i := strings.LastIndexAny(name, ".$"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Package returns the package of the outermost enclosing class.
func (d *ClassDecl) Package() string {
	top := d
	for top.Outer != nil {
		top = top.Outer
	}
	name := top.Name
	if i := strings.IndexByte(name, '$'); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return ""
}

// Outermost returns the top-level class enclosing d, or d itself.
func (d *ClassDecl) Outermost() *ClassDecl {
	top := d
	for top.Outer != nil {
		top = top.Outer
	}
	return top
}

// ThisType returns the type of this inside the class body: the class
// parameterized by its own type variables.
func (d *ClassDecl) ThisType() *ClassType {
	if len(d.TypeParams) == 0 {
		return &ClassType{Decl: d}
	}
	args := make([]overload.Type, len(d.TypeParams))
	for i, p := range d.TypeParams {
		args[i] = NewTypeVar(p)
	}
	return &ClassType{Decl: d, Args: args}
}

// Universe is the set of declared classes plus type parameter bounds.
//
// Thread Safety:
//
//	Declaration methods are serialized by an internal lock. Queries do not
//	lock and are safe for concurrent use once Freeze has been called.
type Universe struct {
	mu      sync.RWMutex
	frozen  bool
	classes map[string]*ClassDecl
	byClass map[*overload.Class]*ClassDecl
	bounds  map[overload.TypeParam][]overload.Type
	boxes   map[*PrimitiveType]*ClassDecl
	unboxes map[*ClassDecl]*PrimitiveType
	object  *ClassDecl
}

// NewUniverse creates a universe seeded with the core java.lang types.
//
// Description:
//
//	The seed contains Object, String, CharSequence, Comparable, Number,
//	the eight wrapper classes, Serializable, Cloneable, Iterable,
//	Collection, List and ArrayList. Callers declare their own classes on
//	top and call Freeze before sharing the universe between goroutines.
//
// Outputs:
//
//	*Universe - The seeded universe, not frozen.
func NewUniverse() *Universe {
	u := &Universe{
		classes: make(map[string]*ClassDecl),
		byClass: make(map[*overload.Class]*ClassDecl),
		bounds:  make(map[overload.TypeParam][]overload.Type),
		boxes:   make(map[*PrimitiveType]*ClassDecl),
		unboxes: make(map[*ClassDecl]*PrimitiveType),
	}
	u.seed()
	return u
}

func (u *Universe) seed() {
	must := func(d *ClassDecl, err error) *ClassDecl {
		if err != nil {
			panic(fmt.Sprintf("javatypes: seeding universe: %v", err))
		}
		return d
	}
	check := func(err error) {
		if err != nil {
			panic(fmt.Sprintf("javatypes: seeding universe: %v", err))
		}
	}

	u.object = must(u.Declare(ObjectName, false))
	serializable := must(u.Declare(SerializableName, true))
	must(u.Declare(CloneableName, true))
	comparable := must(u.Declare("java.lang.Comparable", true, "T"))
	charSeq := must(u.Declare("java.lang.CharSequence", true))
	str := must(u.Declare(StringName, false))
	number := must(u.Declare("java.lang.Number", false))

	comparableOf := func(d *ClassDecl) *ClassType {
		return &ClassType{Decl: comparable, Args: []overload.Type{d.ThisType()}}
	}
	check(u.SetSupertypes(str, nil, &ClassType{Decl: serializable}, comparableOf(str), &ClassType{Decl: charSeq}))
	check(u.SetSupertypes(number, nil, &ClassType{Decl: serializable}))

	wrappers := []struct {
		name    string
		prim    *PrimitiveType
		numeric bool
	}{
		{"java.lang.Boolean", Boolean, false},
		{"java.lang.Byte", Byte, true},
		{"java.lang.Short", Short, true},
		{"java.lang.Character", Char, false},
		{"java.lang.Integer", Int, true},
		{"java.lang.Long", Long, true},
		{"java.lang.Float", Float, true},
		{"java.lang.Double", Double, true},
	}
	for _, w := range wrappers {
		d := must(u.Declare(w.name, false))
		var super *ClassType
		ifaces := []*ClassType{comparableOf(d)}
		if w.numeric {
			super = &ClassType{Decl: number}
		} else {
			ifaces = append(ifaces, &ClassType{Decl: serializable})
		}
		check(u.SetSupertypes(d, super, ifaces...))
		u.boxes[w.prim] = d
		u.unboxes[d] = w.prim
	}

	iterable := must(u.Declare("java.lang.Iterable", true, "T"))
	collection := must(u.Declare("java.util.Collection", true, "E"))
	list := must(u.Declare("java.util.List", true, "E"))
	arrayList := must(u.Declare("java.util.ArrayList", false, "E"))
	check(u.SetSupertypes(collection, nil, &ClassType{Decl: iterable, Args: []overload.Type{NewTypeVar(collection.TypeParams[0])}}))
	check(u.SetSupertypes(list, nil, &ClassType{Decl: collection, Args: []overload.Type{NewTypeVar(list.TypeParams[0])}}))
	check(u.SetSupertypes(arrayList, nil,
		&ClassType{Decl: list, Args: []overload.Type{NewTypeVar(arrayList.TypeParams[0])}},
		&ClassType{Decl: serializable},
	))
}

// Declare adds a class or interface with the given type parameter names.
//
// Description:
//
//	The new class extends Object until SetSupertypes says otherwise.
//	Type parameters are owned by the class name and start out bounded by
//	Object.
//
// Inputs:
//
//	name - The qualified name. Must be unique.
//	iface - Whether the declaration is an interface.
//	typeParams - Type parameter names in order.
//
// Outputs:
//
//	*ClassDecl - The new declaration.
//	error - ErrFrozen or ErrDuplicateClass.
func (u *Universe) Declare(name string, iface bool, typeParams ...string) (*ClassDecl, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.frozen {
		return nil, ErrFrozen
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrUnknownClass)
	}
	if _, exists := u.classes[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateClass, name)
	}

	d := &ClassDecl{
		Name:  name,
		Class: &overload.Class{QualifiedName: name, Interface: iface},
	}
	for _, tp := range typeParams {
		d.TypeParams = append(d.TypeParams, overload.TypeParam{Name: tp, Owner: name})
	}
	u.classes[name] = d
	u.byClass[d.Class] = d
	return d, nil
}

// SetSupertypes sets the direct superclass and interfaces of d.
//
// Description:
//
//	Interfaces may not have a superclass and every entry of ifaces must be
//	an interface. Edges that would make d its own supertype are rejected.
//
// Inputs:
//
//	d - The declaration to update.
//	super - The superclass, or nil for Object.
//	ifaces - Direct superinterfaces.
//
// Outputs:
//
//	error - ErrFrozen, ErrInvalidSupertype or ErrCyclicHierarchy.
func (u *Universe) SetSupertypes(d *ClassDecl, super *ClassType, ifaces ...*ClassType) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.frozen {
		return ErrFrozen
	}
	if super != nil {
		if d.IsInterface() {
			return fmt.Errorf("%w: interface %s cannot extend class %s", ErrInvalidSupertype, d.Name, super.Decl.Name)
		}
		if super.Decl.IsInterface() {
			return fmt.Errorf("%w: %s extends interface %s", ErrInvalidSupertype, d.Name, super.Decl.Name)
		}
		if super.Decl == d || u.inherits(super.Decl, d) {
			return fmt.Errorf("%w: %s extends %s", ErrCyclicHierarchy, d.Name, super.Decl.Name)
		}
	}
	for _, it := range ifaces {
		if !it.Decl.IsInterface() {
			return fmt.Errorf("%w: %s implements class %s", ErrInvalidSupertype, d.Name, it.Decl.Name)
		}
		if it.Decl == d || u.inherits(it.Decl, d) {
			return fmt.Errorf("%w: %s implements %s", ErrCyclicHierarchy, d.Name, it.Decl.Name)
		}
	}

	if d == u.object {
		super = nil
	}
	d.Super = super
	d.Interfaces = ifaces
	return nil
}

// SetOuter records that outer lexically encloses inner.
func (u *Universe) SetOuter(inner, outer *ClassDecl) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.frozen {
		return ErrFrozen
	}
	for o := outer; o != nil; o = o.Outer {
		if o == inner {
			return fmt.Errorf("%w: %s encloses itself", ErrCyclicHierarchy, inner.Name)
		}
	}
	inner.Outer = outer
	return nil
}

// SetBounds sets the upper bounds of a type parameter. The first bound is
// the erasure.
func (u *Universe) SetBounds(p overload.TypeParam, bounds ...overload.Type) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.frozen {
		return ErrFrozen
	}
	u.bounds[p] = bounds
	return nil
}

// Bounds returns the declared bounds of p, defaulting to Object.
func (u *Universe) Bounds(p overload.TypeParam) []overload.Type {
	if b := u.bounds[p]; len(b) > 0 {
		return b
	}
	return []overload.Type{u.Object()}
}

// Freeze makes the universe read-only.
func (u *Universe) Freeze() {
	u.mu.Lock()
	u.frozen = true
	u.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (u *Universe) Frozen() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.frozen
}

// Lookup finds a class by qualified name. Simple names of java.lang
// classes are also accepted.
func (u *Universe) Lookup(name string) (*ClassDecl, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if d, ok := u.classes[name]; ok {
		return d, true
	}
	if !strings.ContainsAny(name, ".$") {
		if d, ok := u.classes["java.lang."+name]; ok {
			return d, true
		}
	}
	return nil, false
}

// DeclOf returns the declaration behind an overload.Class.
func (u *Universe) DeclOf(c *overload.Class) (*ClassDecl, bool) {
	if c == nil {
		return nil, false
	}
	if d, ok := u.byClass[c]; ok {
		return d, true
	}
	d, ok := u.classes[c.QualifiedName]
	return d, ok
}

// Classes returns every declaration sorted by name.
func (u *Universe) Classes() []*ClassDecl {
	u.mu.RLock()
	defer u.mu.RUnlock()

	out := make([]*ClassDecl, 0, len(u.classes))
	for _, d := range u.classes {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Object returns the root class type.
func (u *Universe) Object() *ClassType {
	return &ClassType{Decl: u.object}
}

// ClassType builds a class type by name, checking the argument count.
//
// Description:
//
//	With no args the result is raw when the class is generic.
//
// Inputs:
//
//	name - A qualified name, or a java.lang simple name.
//	args - Type arguments.
//
// Outputs:
//
//	*ClassType - The type.
//	error - ErrUnknownClass or ErrTypeArgCount.
func (u *Universe) ClassType(name string, args ...overload.Type) (*ClassType, error) {
	d, ok := u.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, name)
	}
	if len(args) != 0 && len(args) != len(d.TypeParams) {
		return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrTypeArgCount, d.Name, len(d.TypeParams), len(args))
	}
	return &ClassType{Decl: d, Args: args}, nil
}

// MustClassType is ClassType for names known to exist. It panics on error.
func (u *Universe) MustClassType(name string, args ...overload.Type) *ClassType {
	t, err := u.ClassType(name, args...)
	if err != nil {
		panic(fmt.Sprintf("javatypes: %v", err))
	}
	return t
}

// Boxed returns the wrapper class type of a primitive.
func (u *Universe) Boxed(p *PrimitiveType) (*ClassType, bool) {
	d, ok := u.boxes[p]
	if !ok {
		return nil, false
	}
	return &ClassType{Decl: d}, true
}

// Unboxed returns the primitive wrapped by a class type.
func (u *Universe) Unboxed(t *ClassType) (*PrimitiveType, bool) {
	p, ok := u.unboxes[t.Decl]
	return p, ok
}

// directSupertypes returns the immediate supertypes of t with t's type
// arguments substituted in. A raw t yields raw supertypes.
func (u *Universe) directSupertypes(t *ClassType) []*ClassType {
	d := t.Decl
	if d == u.object {
		return nil
	}

	var sub overload.Substitution
	raw := t.IsRaw()
	if !raw && len(d.TypeParams) > 0 {
		sub = make(overload.Substitution, len(d.TypeParams))
		for i, p := range d.TypeParams {
			sub[p] = t.Args[i]
		}
	}

	project := func(s *ClassType) *ClassType {
		if raw {
			return &ClassType{Decl: s.Decl}
		}
		if sub == nil {
			return s
		}
		out, _ := u.Substitute(s, sub).(*ClassType)
		return out
	}

	out := make([]*ClassType, 0, len(d.Interfaces)+1)
	if d.Super != nil {
		out = append(out, project(d.Super))
	}
	for _, it := range d.Interfaces {
		out = append(out, project(it))
	}
	if d.Super == nil {
		out = append(out, u.Object())
	}
	return out
}

// Supertypes returns t and every supertype of t in breadth-first order,
// each listed once. The superclass chain is visited before interfaces at
// every level.
func (u *Universe) Supertypes(t *ClassType) []*ClassType {
	seen := make(map[*ClassDecl]bool)
	queue := []*ClassType{t}
	var out []*ClassType
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == nil || seen[cur.Decl] {
			continue
		}
		seen[cur.Decl] = true
		out = append(out, cur)
		queue = append(queue, u.directSupertypes(cur)...)
	}
	return out
}

// AsSuper views t as an instance of target, or returns nil when target is
// not a supertype of t.
func (u *Universe) AsSuper(t *ClassType, target *ClassDecl) *ClassType {
	if target == u.object {
		return u.Object()
	}
	for _, s := range u.Supertypes(t) {
		if s.Decl == target {
			return s
		}
	}
	return nil
}

// inherits reports whether sub has super as a proper supertype.
func (u *Universe) inherits(sub, super *ClassDecl) bool {
	if sub == super {
		return false
	}
	if super == u.object {
		return true
	}
	seen := map[*ClassDecl]bool{sub: true}
	stack := []*ClassDecl{sub}
	for len(stack) > 0 {
		d := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		next := make([]*ClassDecl, 0, len(d.Interfaces)+1)
		if d.Super != nil {
			next = append(next, d.Super.Decl)
		}
		for _, it := range d.Interfaces {
			next = append(next, it.Decl)
		}
		for _, n := range next {
			if n == super {
				return true
			}
			if !seen[n] {
				seen[n] = true
				stack = append(stack, n)
			}
		}
	}
	return false
}
