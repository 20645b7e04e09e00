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

func TestNewResolver_NilTypeSystem(t *testing.T) {
	r, err := overload.NewResolver(nil)
	assert.Nil(t, r)
	assert.ErrorIs(t, err, overload.ErrNilTypeSystem)
}

func TestResolve_Empty(t *testing.T) {
	w := newWorld(t)

	assert.Nil(t, w.r.Resolve(nil, w.args("int")))

	res := w.r.ResolveCall([]*overload.Candidate{}, overload.Call{})
	assert.Equal(t, overload.OutcomeNoCandidates, res.Outcome)
	assert.Empty(t, res.Phases)
}

func TestResolve_Singleton(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	only := cand(w.method(c, "f", "String", "String"))
	only.Accessible = false

	res := w.r.ResolveCall([]*overload.Candidate{only}, overload.Call{Args: w.args("int")})
	assert.Same(t, only, res.Chosen)
	assert.Equal(t, overload.OutcomeResolved, res.Outcome)
	assert.Empty(t, res.Phases, "no pass runs for a single candidate")
	_, tagged := only.Level()
	assert.False(t, tagged)
}

func TestResolve_DoesNotModifyInput(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	input := cands(
		w.method(c, "f", "int", "int"),
		w.method(c, "f", "int"),
		w.method(c, "f", "long"),
	)
	before := append([]*overload.Candidate(nil), input...)

	chosen := w.r.Resolve(input, w.args("int"))
	require.NotNil(t, chosen)
	assert.Same(t, input[1], chosen)
	assert.Equal(t, before, input)
}

func TestResolve_ArityMismatchIsNone(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	input := cands(
		w.method(c, "f", "int"),
		w.method(c, "f", "int", "int", "int"),
	)

	res := w.r.ResolveCall(input, overload.Call{Args: w.args("int", "int")})
	assert.Nil(t, res.Chosen)
	assert.Equal(t, overload.OutcomeArityMismatch, res.Outcome)
	assert.Len(t, res.Remaining, 2)
}

// m(String) in Base and its override in Derived, found most-derived first.
func TestResolve_ScenarioOverride(t *testing.T) {
	w := newWorld(t)
	base := w.class("com.acme.Base", false, "")
	derived := w.class("com.acme.Derived", false, "com.acme.Base")

	input := cands(
		w.method(derived, "m", "String"),
		w.method(base, "m", "String"),
	)

	res := w.r.ResolveCall(input, overload.Call{Args: w.args("String")})
	require.Equal(t, overload.OutcomeResolved, res.Outcome)
	assert.Same(t, input[0], res.Chosen)
	assert.Equal(t, overload.PhaseDedup, res.Phases[len(res.Phases)-1].Phase)
}

// f(int) against f(Integer) with an int argument.
func TestResolve_ScenarioPrimitiveBeatsWrapper(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	input := cands(
		w.method(c, "f", "Integer"),
		w.method(c, "f", "int"),
	)

	chosen := w.r.Resolve(input, w.args("int"))
	require.NotNil(t, chosen)
	assert.Same(t, input[1], chosen)
}

// g(Object...) against g(String, String) with two String arguments.
func TestResolve_ScenarioFixedArityBeatsVarargs(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	input := cands(
		w.method(c, "g", "Object..."),
		w.method(c, "g", "String", "String"),
	)

	res := w.r.ResolveCall(input, overload.Call{Args: w.args("String", "String")})
	require.Equal(t, overload.OutcomeResolved, res.Outcome)
	assert.Same(t, input[1], res.Chosen)
	assert.Equal(t, overload.Strict, res.Level)

	level, ok := input[0].Level()
	assert.True(t, ok)
	assert.Equal(t, overload.Varargs, level)
}

// <T> h(T) against h(String) with a String argument.
func TestResolve_ScenarioNonGenericBeatsGeneric(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	input := cands(
		w.generic(c, "h", []string{"T"}, "T"),
		w.method(c, "h", "String"),
	)

	res := w.r.ResolveCall(input, overload.Call{Args: w.args("String")})
	require.Equal(t, overload.OutcomeResolved, res.Outcome)
	assert.Same(t, input[1], res.Chosen)
	assert.Equal(t, overload.PhaseSpecifics, res.Phases[len(res.Phases)-1].Phase)
}

func TestResolve_AmbiguityIsNone(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	input := cands(
		w.method(c, "f", "int", "String"),
		w.method(c, "f", "String", "int"),
	)

	res := w.r.ResolveCall(input, overload.Call{Args: w.args("?", "?")})
	assert.Nil(t, res.Chosen)
	assert.Equal(t, overload.OutcomeAmbiguous, res.Outcome)
	assert.Len(t, res.Remaining, 2)

	assert.Nil(t, w.r.Resolve(input, w.args("null", "null")))
}

func TestResolve_MostSpecificAmongThree(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	input := cands(
		w.method(c, "f", "Object"),
		w.method(c, "f", "String"),
		w.method(c, "f", "CharSequence"),
	)

	chosen := w.r.Resolve(input, w.args("String"))
	require.NotNil(t, chosen)
	assert.Same(t, input[1], chosen)
}

func TestResolve_WideningPreferredOverBoxing(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	input := cands(
		w.method(c, "f", "Integer"),
		w.method(c, "f", "long"),
		w.method(c, "f", "Object"),
	)

	res := w.r.ResolveCall(input, overload.Call{Args: w.args("int")})
	require.Equal(t, overload.OutcomeResolved, res.Outcome)
	assert.Same(t, input[1], res.Chosen)
	assert.Equal(t, overload.PhaseApplicability, res.Phases[len(res.Phases)-1].Phase)
}

func TestResolve_EqualCandidatesCollapse(t *testing.T) {
	w := newWorld(t)
	iface := w.class("com.acme.Named", true, "")
	m := w.method(iface, "name")
	a := cand(m)
	b := cand(m)
	a.Scope = overload.ResolveScope{Kind: overload.ScopeClass, Class: iface.Class}

	res := w.r.ResolveCall([]*overload.Candidate{a, b}, overload.Call{})
	require.Equal(t, overload.OutcomeResolved, res.Outcome)
	assert.Same(t, a, res.Chosen)
	assert.Equal(t, overload.PhaseUnique, res.Phases[len(res.Phases)-1].Phase)
}

func TestResolve_StaticContextPrefersStatic(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	instance := cand(w.method(c, "f", "long"))
	instance.StaticsScopeCorrect = false
	st := cand(static(w.method(c, "f", "int")))

	res := w.r.ResolveCall([]*overload.Candidate{instance, st}, overload.Call{Args: w.args("int")})
	require.Equal(t, overload.OutcomeResolved, res.Outcome)
	assert.Same(t, st, res.Chosen)
	assert.Equal(t, overload.PhaseAccess, res.Phases[len(res.Phases)-1].Phase)
}

func TestResolve_NilMethodPanics(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	input := []*overload.Candidate{cand(w.method(c, "f")), {}}

	assert.Panics(t, func() {
		w.r.Resolve(input, nil)
	})
}

func TestResolve_DuplicatePointerPanics(t *testing.T) {
	w := newWorld(t)
	c := w.class("com.acme.C", false, "")
	dup := cand(w.method(c, "f", "int", "int"))

	assert.Panics(t, func() {
		w.r.ResolveCall([]*overload.Candidate{dup, dup}, overload.Call{Args: w.args("int")})
	})
}

func TestOutcomeAndLevelNames(t *testing.T) {
	assert.Equal(t, "ambiguous", overload.OutcomeAmbiguous.String())
	assert.Equal(t, "with_boxing", overload.WithBoxing.String())
	assert.Equal(t, "second", overload.SecondMoreSpecific.String())
	assert.Equal(t, "static_import", overload.ScopeStaticImport.String())
	assert.True(t, overload.Strict > overload.WithBoxing)
	assert.True(t, overload.WithBoxing > overload.Varargs)
	assert.True(t, overload.Varargs > overload.NotApplicable)
}
