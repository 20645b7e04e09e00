// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package overload_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianResolve/services/resolve/javatypes"
	"github.com/AleutianAI/AleutianResolve/services/resolve/overload"
)

// world is a tiny class universe for building candidates in tests.
type world struct {
	t *testing.T
	u *javatypes.Universe
	r *overload.Resolver
}

func newWorld(t *testing.T) *world {
	t.Helper()
	u := javatypes.NewUniverse()
	r, err := overload.NewResolver(u)
	require.NoError(t, err)
	return &world{t: t, u: u, r: r}
}

// class declares a class. super and ifaces are type expressions; an empty
// super means Object.
func (w *world) class(name string, iface bool, super string, ifaces ...string) *javatypes.ClassDecl {
	w.t.Helper()
	d, err := w.u.Declare(name, iface)
	require.NoError(w.t, err)

	var superType *javatypes.ClassType
	if super != "" {
		superType = w.typ(super).(*javatypes.ClassType)
	}
	var ifaceTypes []*javatypes.ClassType
	for _, it := range ifaces {
		ifaceTypes = append(ifaceTypes, w.typ(it).(*javatypes.ClassType))
	}
	require.NoError(w.t, w.u.SetSupertypes(d, superType, ifaceTypes...))
	return d
}

func (w *world) typ(expr string) overload.Type {
	w.t.Helper()
	t, err := w.u.ParseType(expr, nil)
	require.NoError(w.t, err, expr)
	return t
}

// method declares name(params) on d. A trailing "..." makes it variadic.
func (w *world) method(d *javatypes.ClassDecl, name string, params ...string) *overload.Method {
	w.t.Helper()
	return w.generic(d, name, nil, params...)
}

// generic declares a method with its own type parameters.
func (w *world) generic(d *javatypes.ClassDecl, name string, typeParams []string, params ...string) *overload.Method {
	w.t.Helper()
	id := d.Name + "#" + name + "(" + strings.Join(params, ",") + ")"
	m := &overload.Method{ID: id, Name: name, Class: d.Class, Return: javatypes.Void}
	vars := javatypes.TypeVars{}.With(d.TypeParams...)
	for _, tp := range typeParams {
		p := overload.TypeParam{Name: tp, Owner: id}
		m.TypeParams = append(m.TypeParams, p)
		vars = vars.With(p)
	}
	for _, expr := range params {
		pt, varargs, err := w.u.ParseParam(expr, vars)
		require.NoError(w.t, err, expr)
		m.Params = append(m.Params, pt)
		m.VarArgs = m.VarArgs || varargs
	}
	return m
}

func (w *world) returns(m *overload.Method, expr string) *overload.Method {
	w.t.Helper()
	m.Return = w.typ(expr)
	return m
}

func (w *world) args(exprs ...string) overload.ArgumentTypes {
	w.t.Helper()
	out := make(overload.ArgumentTypes, len(exprs))
	for i, e := range exprs {
		if e == "?" {
			continue
		}
		out[i] = w.typ(e)
	}
	return out
}

// cand wraps m as an accessible, statics-correct candidate.
func cand(m *overload.Method) *overload.Candidate {
	return &overload.Candidate{Method: m, Accessible: true, StaticsScopeCorrect: true}
}

func cands(ms ...*overload.Method) []*overload.Candidate {
	out := make([]*overload.Candidate, len(ms))
	for i, m := range ms {
		out[i] = cand(m)
	}
	return out
}

func static(m *overload.Method) *overload.Method {
	m.Static = true
	return m
}
