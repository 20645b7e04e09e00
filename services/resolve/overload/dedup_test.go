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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianResolve/services/resolve/javatypes"
	"github.com/AleutianAI/AleutianResolve/services/resolve/overload"
)

func TestDeduplicate_KeepsOverride(t *testing.T) {
	w := newWorld(t)
	base := w.class("com.acme.Base", false, "")
	derived := w.class("com.acme.Derived", false, "com.acme.Base")
	baseM := w.method(base, "m", "String")
	derivedM := w.method(derived, "m", "String")

	for _, order := range [][]*overload.Method{{derivedM, baseM}, {baseM, derivedM}} {
		out := w.r.DeduplicateSignatures(cands(order...), nil)
		require.Len(t, out, 1)
		assert.Same(t, derivedM, out[0].Method)
	}
}

func TestDeduplicate_GenericOverride(t *testing.T) {
	w := newWorld(t)
	box, err := w.u.Declare("com.acme.Box", false, "T")
	require.NoError(t, err)
	strBox := w.class("com.acme.StringBox", false, "com.acme.Box<String>")

	put := w.method(box, "put", "T")
	override := w.method(strBox, "put", "String")

	inherited := cand(put)
	inherited.Substitution = overload.Substitution{box.TypeParams[0]: w.typ("String")}

	out := w.r.DeduplicateSignatures([]*overload.Candidate{cand(override), inherited}, nil)
	require.Len(t, out, 1)
	assert.Same(t, override, out[0].Method)
}

func TestDeduplicate_Idempotent(t *testing.T) {
	w := newWorld(t)
	base := w.class("com.acme.Base", false, "")
	derived := w.class("com.acme.Derived", false, "com.acme.Base")
	iface := w.class("com.acme.Named", true, "")

	input := cands(
		w.method(derived, "m", "String"),
		w.method(derived, "m", "int"),
		w.method(base, "m", "String"),
		w.method(base, "m", "Object"),
		w.method(iface, "m", "Object"),
	)

	once := w.r.DeduplicateSignatures(input, nil)
	snapshot := append([]*overload.Candidate(nil), once...)
	twice := w.r.DeduplicateSignatures(once, nil)
	assert.Equal(t, snapshot, twice)
}

func TestDeduplicate_InterfaceBeatsRootMethod(t *testing.T) {
	w := newWorld(t)
	object, ok := w.u.Lookup(javatypes.ObjectName)
	require.True(t, ok)
	iface := w.class("com.acme.Named", true, "")

	objectM := w.returns(w.method(object, "toString"), "String")
	ifaceM := w.returns(w.method(iface, "toString"), "String")

	for _, order := range [][]*overload.Method{{objectM, ifaceM}, {ifaceM, objectM}} {
		out := w.r.DeduplicateSignatures(cands(order...), nil)
		require.Len(t, out, 1)
		assert.Same(t, ifaceM, out[0].Method)
	}
}

func TestDeduplicate_StaticHidingWithNarrowerReturn(t *testing.T) {
	w := newWorld(t)
	base := w.class("com.acme.Base", false, "")
	derived := w.class("com.acme.Derived", false, "com.acme.Base")

	baseMake := w.returns(static(w.method(base, "make")), "Object")
	derivedMake := w.returns(static(w.method(derived, "make")), "String")

	out := w.r.DeduplicateSignatures(cands(derivedMake, baseMake), nil)
	require.Len(t, out, 1)
	assert.Same(t, derivedMake, out[0].Method)
}

func TestDeduplicate_TypeArgumentsViolatingBoundsLose(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	m := w.generic(c, "f", []string{"N"}, "N")
	tp := m.TypeParams[0]
	require.NoError(t, w.u.SetBounds(tp, w.typ("Number")))

	good := cand(m)
	good.Inferred = overload.Substitution{tp: w.typ("Integer")}
	bad := cand(m)
	bad.Inferred = overload.Substitution{tp: w.typ("String")}

	out := w.r.DeduplicateSignatures([]*overload.Candidate{good, bad}, nil)
	assert.Equal(t, []*overload.Candidate{good}, out)

	bad2 := cand(m)
	bad2.Inferred = bad.Inferred
	good2 := cand(m)
	good2.Inferred = good.Inferred
	out = w.r.DeduplicateSignatures([]*overload.Candidate{bad2, good2}, nil)
	assert.Equal(t, []*overload.Candidate{good2}, out)
}

func TestDeduplicate_EnclosingScopeReplacesInaccessible(t *testing.T) {
	w := newWorld(t)
	base := w.class("com.acme.Base", false, "")
	outer := w.class("com.acme.Outer", false, "com.acme.Base")
	inner := w.class("com.acme.Outer$Inner", false, "com.acme.Base")
	require.NoError(t, w.u.SetOuter(inner, outer))

	m := w.method(base, "helper")
	viaInner := cand(m)
	viaInner.Accessible = false
	viaInner.Scope = overload.ResolveScope{Kind: overload.ScopeClass, Class: inner.Class}
	viaOuter := cand(m)
	viaOuter.Scope = overload.ResolveScope{Kind: overload.ScopeClass, Class: outer.Class}

	chosen := w.r.Resolve([]*overload.Candidate{viaInner, viaOuter}, nil)
	assert.Same(t, viaOuter, chosen)
}

func TestDeduplicate_QualifierPrefersNarrowerReturn(t *testing.T) {
	w := newWorld(t)
	w.class("com.acme.Source", true, "")
	w.class("com.acme.TextSource", true, "")
	impl := w.class("com.acme.Impl", false, "", "com.acme.Source", "com.acme.TextSource")
	source, _ := w.u.Lookup("com.acme.Source")
	text, _ := w.u.Lookup("com.acme.TextSource")

	wide := w.returns(w.method(source, "get"), "Object")
	narrow := w.returns(w.method(text, "get"), "String")

	out := w.r.DeduplicateSignatures(cands(wide, narrow), impl.Class)
	require.Len(t, out, 1)
	assert.Same(t, narrow, out[0].Method)

	out = w.r.DeduplicateSignatures(cands(narrow, wide), impl.Class)
	require.Len(t, out, 1)
	assert.Same(t, narrow, out[0].Method)

	out = w.r.DeduplicateSignatures(cands(wide, narrow), nil)
	assert.Len(t, out, 2, "unrelated declarations stay without a qualifier")
}

func TestDeduplicate_QualifierKeepsClassOverInterface(t *testing.T) {
	w := newWorld(t)
	w.class("com.acme.Source", true, "")
	w.class("com.acme.AbstractThing", false, "")
	impl := w.class("com.acme.Impl", false, "com.acme.AbstractThing", "com.acme.Source")
	source, _ := w.u.Lookup("com.acme.Source")
	thing, _ := w.u.Lookup("com.acme.AbstractThing")

	classM := w.returns(w.method(thing, "get"), "Object")
	ifaceM := w.returns(w.method(source, "get"), "String")

	out := w.r.DeduplicateSignatures(cands(classM, ifaceM), impl.Class)
	assert.Len(t, out, 2)
}
