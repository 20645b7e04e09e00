// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fixture

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/AleutianResolve/services/resolve/index"
	"github.com/AleutianAI/AleutianResolve/services/resolve/javatypes"
	"github.com/AleutianAI/AleutianResolve/services/resolve/overload"
)

// Model is a built fixture: a frozen universe, its method index and the
// call sites of the document.
type Model struct {
	Name     string
	Document *Document
	Universe *javatypes.Universe
	Index    *index.MethodIndex
	Calls    []*Call
}

// Call pairs a built call site with its expectation.
type Call struct {
	Site   *index.CallSite
	Expect string
}

// CallByID returns the call with the given ID.
func (m *Model) CallByID(id string) (*Call, bool) {
	for _, c := range m.Calls {
		if c.Site.ID == id {
			return c, true
		}
	}
	return nil, false
}

// Build turns a validated document into a Model.
//
// Description:
//
//	Classes are declared first so that supertypes, bounds and parameter
//	types may refer to classes in any order. Methods are added to the
//	index in one atomic batch, then the universe is frozen and the calls
//	are built against it.
//
// Inputs:
//
//	ctx - Context for tracing.
//	doc - The document. Must have passed Validate.
//	opts - Options for the method index.
//
// Outputs:
//
//	*Model - The built model.
//	error - Wraps ErrBuild with the first failing class, method or call.
func Build(ctx context.Context, doc *Document, opts ...index.MethodIndexOption) (*Model, error) {
	_, span := tracer.Start(ctx, "fixture.Build")
	defer span.End()

	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", ErrBuild)
	}
	u := javatypes.NewUniverse()
	b := &builder{u: u, decls: make(map[string]*javatypes.ClassDecl, len(doc.Classes))}

	if err := b.declareClasses(doc.Classes); err != nil {
		return nil, err
	}
	if err := b.linkClasses(doc.Classes); err != nil {
		return nil, err
	}
	entries, err := b.methods(doc.Classes)
	if err != nil {
		return nil, err
	}

	idx := index.NewMethodIndex(u, opts...)
	if err := idx.AddBatch(entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}
	u.Freeze()

	model := &Model{Name: doc.Name, Document: doc, Universe: u, Index: idx}
	for i := range doc.Calls {
		site, err := BuildCall(u, &doc.Calls[i])
		if err != nil {
			return nil, err
		}
		model.Calls = append(model.Calls, &Call{Site: site, Expect: doc.Calls[i].Expect})
	}

	span.SetAttributes(
		attribute.String("fixture.name", doc.Name),
		attribute.Int("fixture.methods", len(entries)),
		attribute.Int("fixture.calls", len(model.Calls)),
	)
	return model, nil
}

// BuildCall builds an index.CallSite from a call declaration.
//
// Argument and qualifier types may mention the type parameters of the
// context class.
func BuildCall(u *javatypes.Universe, spec *CallSpec) (*index.CallSite, error) {
	fail := func(format string, args ...any) (*index.CallSite, error) {
		return nil, fmt.Errorf("%w: call %s: %s", ErrBuild, spec.ID, fmt.Sprintf(format, args...))
	}

	enclosing, ok := u.Lookup(spec.Context)
	if !ok {
		return fail("unknown context class %s", spec.Context)
	}
	vars := contextVars(enclosing)

	site := &index.CallSite{
		ID:              spec.ID,
		Name:            spec.Method,
		Context:         enclosing,
		StaticContext:   spec.StaticContext,
		StaticQualifier: spec.StaticQualifier,
	}

	if spec.Qualifier != "" {
		t, err := u.ParseType(spec.Qualifier, vars)
		if err != nil {
			return fail("qualifier: %v", err)
		}
		ct, ok := t.(*javatypes.ClassType)
		if !ok {
			return fail("qualifier %s is not a class type", spec.Qualifier)
		}
		site.Qualifier = ct
	}

	for _, name := range spec.StaticImports {
		d, ok := u.Lookup(name)
		if !ok {
			return fail("unknown static import %s", name)
		}
		site.StaticImports = append(site.StaticImports, d)
	}

	site.Args = make(overload.ArgumentTypes, len(spec.Args))
	for i, a := range spec.Args {
		if a == UnknownArg {
			continue
		}
		t, err := u.ParseType(a, vars)
		if err != nil {
			return fail("argument %d: %v", i, err)
		}
		site.Args[i] = t
	}
	return site, nil
}

// contextVars collects the type parameters visible in d's body.
func contextVars(d *javatypes.ClassDecl) javatypes.TypeVars {
	var chain []*javatypes.ClassDecl
	for c := d; c != nil; c = c.Outer {
		chain = append(chain, c)
	}
	vars := javatypes.TypeVars{}
	for i := len(chain) - 1; i >= 0; i-- {
		vars = vars.With(chain[i].TypeParams...)
	}
	return vars
}

type builder struct {
	u     *javatypes.Universe
	decls map[string]*javatypes.ClassDecl
}

func (b *builder) declareClasses(classes []ClassSpec) error {
	for _, c := range classes {
		names := make([]string, len(c.TypeParams))
		for i, tp := range c.TypeParams {
			names[i] = tp.Name
		}
		d, err := b.u.Declare(c.Name, c.Interface, names...)
		if err != nil {
			return fmt.Errorf("%w: class %s: %w", ErrBuild, c.Name, err)
		}
		b.decls[c.Name] = d
	}
	for _, c := range classes {
		if c.Outer == "" {
			continue
		}
		outer, ok := b.decls[c.Outer]
		if !ok {
			return fmt.Errorf("%w: class %s: unknown outer class %s", ErrBuild, c.Name, c.Outer)
		}
		if err := b.u.SetOuter(b.decls[c.Name], outer); err != nil {
			return fmt.Errorf("%w: class %s: %w", ErrBuild, c.Name, err)
		}
	}
	return nil
}

// linkClasses sets bounds and supertypes once every class is declared.
func (b *builder) linkClasses(classes []ClassSpec) error {
	for _, c := range classes {
		d := b.decls[c.Name]
		vars := contextVars(d)

		if err := b.setBounds(d.TypeParams, c.TypeParams, vars); err != nil {
			return fmt.Errorf("%w: class %s: %w", ErrBuild, c.Name, err)
		}

		var super *javatypes.ClassType
		if c.Extends != "" {
			t, err := b.classType(c.Extends, vars)
			if err != nil {
				return fmt.Errorf("%w: class %s extends: %w", ErrBuild, c.Name, err)
			}
			super = t
		}
		ifaces := make([]*javatypes.ClassType, 0, len(c.Implements))
		for _, expr := range c.Implements {
			t, err := b.classType(expr, vars)
			if err != nil {
				return fmt.Errorf("%w: class %s implements: %w", ErrBuild, c.Name, err)
			}
			ifaces = append(ifaces, t)
		}
		if super == nil && len(ifaces) == 0 {
			continue
		}
		if err := b.u.SetSupertypes(d, super, ifaces...); err != nil {
			return fmt.Errorf("%w: class %s: %w", ErrBuild, c.Name, err)
		}
	}
	return nil
}

func (b *builder) classType(expr string, vars javatypes.TypeVars) (*javatypes.ClassType, error) {
	t, err := b.u.ParseType(expr, vars)
	if err != nil {
		return nil, err
	}
	ct, ok := t.(*javatypes.ClassType)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a class type", javatypes.ErrInvalidSupertype, expr)
	}
	return ct, nil
}

func (b *builder) setBounds(params []overload.TypeParam, specs []TypeParamSpec, vars javatypes.TypeVars) error {
	for i, spec := range specs {
		if len(spec.Bounds) == 0 {
			continue
		}
		bounds := make([]overload.Type, len(spec.Bounds))
		for j, expr := range spec.Bounds {
			t, err := b.u.ParseType(expr, vars)
			if err != nil {
				return fmt.Errorf("bound of %s: %w", spec.Name, err)
			}
			bounds[j] = t
		}
		if err := b.u.SetBounds(params[i], bounds...); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) methods(classes []ClassSpec) ([]*index.Entry, error) {
	var entries []*index.Entry
	for _, c := range classes {
		d := b.decls[c.Name]
		for _, ms := range c.Methods {
			e, err := b.method(d, ms)
			if err != nil {
				return nil, fmt.Errorf("%w: method %s: %w", ErrBuild, MethodID(c.Name, ms), err)
			}
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (b *builder) method(d *javatypes.ClassDecl, spec MethodSpec) (*index.Entry, error) {
	id := MethodID(d.Name, spec)
	vis, err := index.ParseVisibility(spec.Visibility)
	if err != nil {
		return nil, err
	}

	m := &overload.Method{
		ID:       id,
		Name:     spec.Name,
		Class:    d.Class,
		Static:   spec.Static,
		Abstract: spec.Abstract,
	}
	for _, tp := range spec.TypeParams {
		m.TypeParams = append(m.TypeParams, overload.TypeParam{Name: tp.Name, Owner: id})
	}

	vars := contextVars(d)
	if spec.Static {
		vars = javatypes.TypeVars{}
	}
	vars = vars.With(m.TypeParams...)

	if err := b.setBounds(m.TypeParams, spec.TypeParams, vars); err != nil {
		return nil, err
	}

	for i, expr := range spec.Params {
		t, varargs, err := b.u.ParseParam(expr, vars)
		if err != nil {
			return nil, err
		}
		if varargs && i != len(spec.Params)-1 {
			return nil, fmt.Errorf("%w: only the last parameter may be variadic", javatypes.ErrTypeSyntax)
		}
		m.Params = append(m.Params, t)
		m.VarArgs = varargs
	}

	if spec.Returns == "" {
		m.Return = javatypes.Void
	} else {
		t, err := b.u.ParseType(spec.Returns, vars)
		if err != nil {
			return nil, fmt.Errorf("return type: %w", err)
		}
		m.Return = t
	}
	return &index.Entry{Method: m, Visibility: vis}, nil
}
