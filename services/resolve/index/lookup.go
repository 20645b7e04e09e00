// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianResolve/services/resolve/javatypes"
	"github.com/AleutianAI/AleutianResolve/services/resolve/overload"
)

// CallSite describes a method call expression for lookup.
type CallSite struct {
	// ID identifies the call in logs and results.
	ID string

	// Name is the invoked method name. Required.
	Name string

	// Qualifier is the static type of the qualifier expression, or nil for
	// an unqualified call.
	Qualifier *javatypes.ClassType

	// StaticQualifier is true when the qualifier is a type name, as in
	// Math.max(a, b). Only static methods are then correct.
	StaticQualifier bool

	// Context is the class whose body contains the call. Required.
	Context *javatypes.ClassDecl

	// StaticContext is true when the call appears in a static method or
	// initializer.
	StaticContext bool

	// StaticImports are classes whose static members are imported.
	StaticImports []*javatypes.ClassDecl

	// Args are the argument types. Nil entries are unknown.
	Args overload.ArgumentTypes
}

// Call returns the resolver input for the site.
func (s *CallSite) Call() overload.Call {
	call := overload.Call{Args: s.Args}
	if s.Qualifier != nil {
		call.Qualifier = s.Qualifier.Decl.Class
	}
	return call
}

// Lookup returns the candidates for a call site in hierarchy order.
//
// Description:
//
//	A qualified call searches the qualifier type and its supertypes. An
//	unqualified call searches the enclosing class and its supertypes, then
//	each lexically enclosing class in turn, stopping at the first scope
//	that yields an accessible method. When no scope yields an accessible
//	method, static imports are searched for static methods.
//
//	Within one scope, supertypes are visited breadth-first with the
//	superclass before interfaces, each type once. An override reached
//	through a longer interface path can follow the method it overrides;
//	dedup does not depend on this order.
//
// Inputs:
//
//	ctx - Context for cancellation and tracing.
//	site - The call site. Name and Context are required.
//
// Outputs:
//
//	[]*overload.Candidate - Fresh candidates, one per method found.
//	error - ErrInvalidCallSite, ErrTooManyCandidates or a context error.
//
// Thread Safety:
//
//	This method is safe for concurrent use once the universe is frozen.
func (idx *MethodIndex) Lookup(ctx context.Context, site *CallSite) ([]*overload.Candidate, error) {
	ctx, span := startOperationSpan(ctx, "Lookup")
	defer span.End()
	start := time.Now()

	fail := func(err error) ([]*overload.Candidate, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		setOperationSpanResult(span, 0, false)
		recordOperationMetrics(ctx, "lookup", time.Since(start), false)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if site == nil || site.Name == "" || site.Context == nil {
		return fail(fmt.Errorf("%w: name and context are required", ErrInvalidCallSite))
	}
	span.SetAttributes(
		attribute.String("call.id", site.ID),
		attribute.String("call.name", site.Name),
		attribute.Bool("call.qualified", site.Qualifier != nil),
	)

	idx.mu.RLock()
	var out []*overload.Candidate
	if site.Qualifier != nil {
		scope := overload.ResolveScope{Kind: overload.ScopeNone}
		out = idx.collectLocked(site, site.Qualifier, scope, site.StaticQualifier, false)
	} else {
		for d := site.Context; d != nil; d = d.Outer {
			scope := overload.ResolveScope{Kind: overload.ScopeClass, Class: d.Class}
			found := idx.collectLocked(site, d.ThisType(), scope, site.StaticContext, false)
			out = append(out, found...)
			if anyAccessible(found) {
				break
			}
		}
		if !anyAccessible(out) {
			for _, imp := range site.StaticImports {
				scope := overload.ResolveScope{Kind: overload.ScopeStaticImport, Class: imp.Class}
				out = append(out, idx.collectLocked(site, &javatypes.ClassType{Decl: imp}, scope, true, true)...)
			}
		}
	}
	idx.mu.RUnlock()

	if limit := idx.options.MaxCandidates; limit > 0 && len(out) > limit {
		return fail(fmt.Errorf("%w: %s produced %d, limit %d", ErrTooManyCandidates, site.Name, len(out), limit))
	}

	setOperationSpanResult(span, len(out), true)
	recordOperationMetrics(ctx, "lookup", time.Since(start), true)
	recordLookupCandidates(ctx, len(out))
	return out, nil
}

// collectLocked gathers the methods named site.Name in start and its
// supertypes. Caller must hold at least a read lock.
func (idx *MethodIndex) collectLocked(site *CallSite, start *javatypes.ClassType, scope overload.ResolveScope, requireStatic, staticOnly bool) []*overload.Candidate {
	var out []*overload.Candidate
	for _, st := range idx.universe.Supertypes(start) {
		entries := idx.byClass[st.Decl.Name][site.Name]
		if len(entries) == 0 {
			continue
		}
		sub := idx.classSubstitution(st)
		for _, e := range entries {
			m := e.Method
			if staticOnly && !m.Static {
				continue
			}
			out = append(out, &overload.Candidate{
				Method:              m,
				Substitution:        sub,
				StaticsScopeCorrect: !requireStatic || m.Static,
				Accessible:          idx.accessible(e, st.Decl, site.Context),
				Scope:               scope,
			})
		}
	}
	return out
}

// classSubstitution binds the declaring class's type parameters as seen
// through t. Raw types bind every parameter to its erasure.
func (idx *MethodIndex) classSubstitution(t *javatypes.ClassType) overload.Substitution {
	params := t.Decl.TypeParams
	if len(params) == 0 {
		return nil
	}
	sub := make(overload.Substitution, len(params))
	for i, p := range params {
		if t.IsRaw() {
			sub[p] = idx.universe.Erasure(p)
			continue
		}
		sub[p] = t.Args[i]
	}
	return sub
}

// accessible applies Java access rules for a call from context to a
// method declared in decl.
func (idx *MethodIndex) accessible(e *Entry, decl, context *javatypes.ClassDecl) bool {
	switch e.Visibility {
	case VisibilityPublic:
		return true
	case VisibilityPrivate:
		return decl.Outermost() == context.Outermost()
	case VisibilityPackage:
		return decl.Package() == context.Package()
	case VisibilityProtected:
		if decl.Package() == context.Package() {
			return true
		}
		for c := context; c != nil; c = c.Outer {
			if c == decl || idx.universe.IsInheritor(c.Class, decl.Class) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func anyAccessible(candidates []*overload.Candidate) bool {
	for _, c := range candidates {
		if c.Accessible {
			return true
		}
	}
	return false
}
