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

	"github.com/AleutianAI/AleutianResolve/services/resolve/overload"
)

func TestCompare_BoxingDominatesSubtyping(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	noBoxing := cand(w.method(c, "f", "Object"))
	boxing := cand(w.method(c, "f", "int"))
	args := w.args("Integer")

	assert.Equal(t, overload.FirstMoreSpecific, w.r.Compare(noBoxing, boxing, overload.WithBoxing, args))
	assert.Equal(t, overload.SecondMoreSpecific, w.r.Compare(boxing, noBoxing, overload.WithBoxing, args))
}

func TestCompare_UnknownArgumentCountsPrimitiveAsBoxing(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	prim := cand(w.method(c, "f", "long"))
	ref := cand(w.method(c, "f", "Long"))

	assert.Equal(t, overload.SecondMoreSpecific, w.r.Compare(prim, ref, overload.Strict, w.args("?")))
}

func TestCompare_FlippedPreferenceIsNeither(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	a := cand(w.method(c, "f", "String", "Object"))
	b := cand(w.method(c, "f", "Object", "String"))

	assert.Equal(t, overload.Neither, w.r.Compare(a, b, overload.Strict, w.args("String", "String")))
}

func TestCompare_IncomparablePositionIsNeither(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	a := cand(w.method(c, "f", "String", "String"))
	b := cand(w.method(c, "f", "Integer", "Object"))

	assert.Equal(t, overload.Neither, w.r.Compare(a, b, overload.Strict, w.args("?", "?")))
}

func TestCompare_VarargsComparesElements(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	strs := cand(w.method(c, "f", "String..."))
	objs := cand(w.method(c, "f", "CharSequence..."))
	mixed := cand(w.method(c, "f", "String", "Object..."))

	args := w.args("String", "String")
	assert.Equal(t, overload.FirstMoreSpecific, w.r.Compare(strs, objs, overload.Varargs, args))
	assert.Equal(t, overload.SecondMoreSpecific, w.r.Compare(objs, strs, overload.Varargs, args))
	assert.Equal(t, overload.FirstMoreSpecific, w.r.Compare(strs, mixed, overload.Varargs, args))
}

func TestCompare_EmptyVarargsTailCountsNoBoxing(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	prims := cand(w.method(c, "f", "String", "int..."))
	boxed := cand(w.method(c, "f", "String", "Integer..."))

	args := w.args("String")
	assert.Equal(t, overload.Neither, w.r.Compare(prims, boxed, overload.Varargs, args))
	assert.Equal(t, overload.Neither, w.r.Compare(boxed, prims, overload.Varargs, args))

	res := w.r.ResolveCall([]*overload.Candidate{prims, boxed}, overload.Call{Args: args})
	assert.Equal(t, overload.OutcomeAmbiguous, res.Outcome)
	assert.Equal(t, overload.Varargs, res.Level)
	assert.Nil(t, res.Chosen)
}

func TestCompare_VarargsOfRootKeepsArrays(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	objs := cand(w.method(c, "f", "Object..."))
	ints := cand(w.method(c, "f", "int..."))

	// Object[] and int[] are unrelated, while Object and int are related
	// through boxing.
	assert.Equal(t, overload.Neither, w.r.Compare(objs, ints, overload.Varargs, w.args("Integer[]")))
}

func TestCompare_InheritanceFallback(t *testing.T) {
	w := newWorld(t)
	base := w.class("com.acme.Base", false, "")
	derived := w.class("com.acme.Derived", false, "com.acme.Base")

	baseM := cand(static(w.method(base, "of", "String")))
	derivedM := cand(static(w.method(derived, "of", "String")))

	args := w.args("String")
	assert.Equal(t, overload.FirstMoreSpecific, w.r.Compare(derivedM, baseM, overload.Strict, args))
	assert.Equal(t, overload.SecondMoreSpecific, w.r.Compare(baseM, derivedM, overload.Strict, args))
}

func TestCompare_ClassBeatsInterfaceOnTie(t *testing.T) {
	w := newWorld(t)
	iface := w.class("com.acme.Source", true, "")
	cls := w.class("com.acme.Other", false, "")

	ifaceM := cand(w.method(iface, "read", "String"))
	classM := cand(w.method(cls, "read", "String"))

	assert.Equal(t, overload.SecondMoreSpecific, w.r.Compare(ifaceM, classM, overload.Strict, w.args("String")))
}

func TestCompare_FewerTypeParametersWins(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	plain := cand(w.method(c, "h", "Object"))
	generic := cand(w.generic(c, "h", []string{"T"}, "Object"))
	twice := cand(w.generic(c, "h", []string{"T", "U"}, "Object"))

	args := w.args("String")
	assert.Equal(t, overload.FirstMoreSpecific, w.r.Compare(plain, generic, overload.Strict, args))
	assert.Equal(t, overload.FirstMoreSpecific, w.r.Compare(generic, twice, overload.Strict, args))
	assert.Equal(t, overload.Neither, w.r.Compare(generic, generic, overload.Strict, args))
}

func TestCompare_BothGenericUseErasure(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	anyT := cand(w.generic(c, "g", []string{"T"}, "T"))
	numT := w.generic(c, "g", []string{"N"}, "N")
	require.NoError(t, w.u.SetBounds(numT.TypeParams[0], w.typ("Number")))

	assert.Equal(t, overload.SecondMoreSpecific, w.r.Compare(anyT, cand(numT), overload.Strict, w.args("Integer")))
}

// The specificity relation is not transitive. A beats B, while C is
// incomparable with both, so B is eliminated and A and C remain.
func TestResolveSpecifics_NonTransitiveTriangle(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	a := cand(w.method(c, "f", "String", "Object"))
	b := cand(w.method(c, "f", "CharSequence", "Object"))
	x := cand(w.method(c, "f", "Integer", "String"))
	args := w.args("?", "?")

	assert.Equal(t, overload.FirstMoreSpecific, w.r.Compare(a, b, overload.Strict, args))
	assert.Equal(t, overload.Neither, w.r.Compare(x, a, overload.Strict, args))
	assert.Equal(t, overload.Neither, w.r.Compare(x, b, overload.Strict, args))

	out := w.r.ResolveSpecifics([]*overload.Candidate{a, b, x}, overload.Strict, args)
	assert.Equal(t, []*overload.Candidate{a, x}, out)

	res := w.r.ResolveCall([]*overload.Candidate{x, b, a}, overload.Call{Args: args})
	assert.Equal(t, overload.OutcomeAmbiguous, res.Outcome)
	assert.Equal(t, []*overload.Candidate{x, a}, res.Remaining)
}

// A cycle in the relation eliminates every candidate because removed
// candidates keep competing through the snapshot.
func TestResolveSpecifics_CycleEliminatesAll(t *testing.T) {
	w := newWorld(t)
	base := w.class("com.acme.Base", false, "")
	derived := w.class("com.acme.Derived", false, "com.acme.Base")
	other := w.class("com.acme.Other", false, "")

	a := cand(static(w.generic(derived, "f", []string{"P", "Q", "R"}, "String")))
	b := cand(static(w.method(base, "f", "String")))
	x := cand(static(w.generic(other, "f", []string{"P", "Q"}, "String")))
	args := w.args("String")

	assert.Equal(t, overload.FirstMoreSpecific, w.r.Compare(a, b, overload.Strict, args))
	assert.Equal(t, overload.FirstMoreSpecific, w.r.Compare(b, x, overload.Strict, args))
	assert.Equal(t, overload.FirstMoreSpecific, w.r.Compare(x, a, overload.Strict, args))

	out := w.r.ResolveSpecifics([]*overload.Candidate{a, b, x}, overload.Strict, args)
	assert.Empty(t, out)
}

func TestResolveSpecifics_NotApplicableSkipsComparison(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	input := cands(w.method(c, "f", "Object"), w.method(c, "f", "String"))

	out := w.r.ResolveSpecifics(input, overload.NotApplicable, w.args("int"))
	assert.Len(t, out, 2)
}

func TestResolveSpecifics_DuplicatePointerPanics(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	dup := cand(w.method(c, "f", "Object"))

	assert.Panics(t, func() {
		w.r.ResolveSpecifics([]*overload.Candidate{dup, dup}, overload.Strict, w.args("String"))
	})
}
