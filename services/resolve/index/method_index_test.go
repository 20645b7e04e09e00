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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianResolve/services/resolve/javatypes"
	"github.com/AleutianAI/AleutianResolve/services/resolve/overload"
)

func testMethod(class *overload.Class, id, name string, static bool) *Entry {
	return &Entry{Method: &overload.Method{ID: id, Name: name, Class: class, Static: static}}
}

func TestMethodIndex_AddAndGet(t *testing.T) {
	u := javatypes.NewUniverse()
	c, err := u.Declare("com.acme.C", false)
	require.NoError(t, err)
	idx := NewMethodIndex(u)

	e := testMethod(c.Class, "C#run()", "run", false)
	require.NoError(t, idx.Add(e))

	got, ok := idx.GetByID("C#run()")
	require.True(t, ok)
	assert.Same(t, e, got)
	assert.Equal(t, []*Entry{e}, idx.GetByName("run"))
	assert.Equal(t, []*Entry{e}, idx.MethodsOf("com.acme.C", "run"))
	assert.Empty(t, idx.MethodsOf("com.acme.C", "walk"))

	err = idx.Add(testMethod(c.Class, "C#run()", "run", false))
	assert.ErrorIs(t, err, ErrDuplicateMethod)

	err = idx.Add(&Entry{Method: &overload.Method{ID: "x", Name: "x"}})
	assert.ErrorIs(t, err, ErrInvalidMethod)

	err = idx.Add(nil)
	assert.ErrorIs(t, err, ErrInvalidMethod)
}

func TestMethodIndex_Capacity(t *testing.T) {
	u := javatypes.NewUniverse()
	c, err := u.Declare("com.acme.C", false)
	require.NoError(t, err)
	idx := NewMethodIndex(u, WithMaxMethods(1))

	require.NoError(t, idx.Add(testMethod(c.Class, "a", "a", false)))
	assert.ErrorIs(t, idx.Add(testMethod(c.Class, "b", "b", false)), ErrMaxMethodsExceeded)
	assert.ErrorIs(t, idx.AddBatch([]*Entry{testMethod(c.Class, "c", "c", false)}), ErrMaxMethodsExceeded)
}

func TestMethodIndex_AddBatchIsAtomic(t *testing.T) {
	u := javatypes.NewUniverse()
	c, err := u.Declare("com.acme.C", false)
	require.NoError(t, err)
	idx := NewMethodIndex(u)
	require.NoError(t, idx.Add(testMethod(c.Class, "existing", "f", false)))

	err = idx.AddBatch([]*Entry{
		testMethod(c.Class, "new1", "f", false),
		testMethod(c.Class, "new1", "f", false),
		nil,
		testMethod(c.Class, "existing", "f", false),
	})
	require.Error(t, err)

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Len(t, batchErr.Errors, 3)
	assert.ErrorIs(t, err, ErrDuplicateMethod)
	assert.ErrorIs(t, err, ErrInvalidMethod)
	assert.Contains(t, batchErr.ErrorList(), "method[1]")

	_, ok := idx.GetByID("new1")
	assert.False(t, ok, "nothing from a failed batch is added")
	assert.Equal(t, 1, idx.Stats().TotalMethods)
}

func TestMethodIndex_RemoveByClassAndStats(t *testing.T) {
	u := javatypes.NewUniverse()
	a, err := u.Declare("com.acme.A", false)
	require.NoError(t, err)
	b, err := u.Declare("com.acme.B", false)
	require.NoError(t, err)
	idx := NewMethodIndex(u)

	require.NoError(t, idx.AddBatch([]*Entry{
		testMethod(a.Class, "A#f", "f", true),
		testMethod(a.Class, "A#g", "g", false),
		testMethod(b.Class, "B#f", "f", false),
	}))

	stats := idx.Stats()
	assert.Equal(t, 3, stats.TotalMethods)
	assert.Equal(t, 2, stats.ClassCount)
	assert.Equal(t, 2, stats.NameCount)
	assert.Equal(t, 1, stats.StaticMethods)
	assert.Equal(t, []string{"f", "g"}, idx.Names())

	assert.Equal(t, 2, idx.RemoveByClass("com.acme.A"))
	stats = idx.Stats()
	assert.Equal(t, 1, stats.TotalMethods)
	assert.Equal(t, 0, stats.StaticMethods)
	assert.Equal(t, []string{"f"}, idx.Names())
	assert.Len(t, idx.GetByName("f"), 1)

	idx.Clear()
	assert.Equal(t, 0, idx.Stats().TotalMethods)
}

func TestMethodIndex_Suggest(t *testing.T) {
	u := javatypes.NewUniverse()
	c, err := u.Declare("com.acme.C", false)
	require.NoError(t, err)
	idx := NewMethodIndex(u)
	for _, name := range []string{"getValue", "setValue", "value", "valueOf", "compute", "revalue"} {
		require.NoError(t, idx.Add(testMethod(c.Class, "C#"+name, name, false)))
	}

	got, err := idx.Suggest(context.Background(), "value", 0)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "value", got[0])
	assert.Equal(t, "valueOf", got[1])
	assert.NotContains(t, got, "compute")

	got, err = idx.Suggest(context.Background(), "valeu", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"value"}, got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = idx.Suggest(ctx, "value", 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseVisibility(t *testing.T) {
	for _, v := range []Visibility{VisibilityPublic, VisibilityProtected, VisibilityPackage, VisibilityPrivate} {
		got, err := ParseVisibility(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	got, err := ParseVisibility("")
	require.NoError(t, err)
	assert.Equal(t, VisibilityPublic, got)

	_, err = ParseVisibility("friend")
	assert.Error(t, err)
}

func TestMatchScore(t *testing.T) {
	tests := []struct {
		query, name string
		wantBase    int
	}{
		{"value", "Value", 0},
		{"get", "getValue", 1},
		{"Value", "getValue", 2},
		{"alu", "getValue", 3},
		{"valeu", "value", 4},
		{"value", "compute", -1},
	}
	for _, tt := range tests {
		t.Run(tt.query+"/"+tt.name, func(t *testing.T) {
			score := matchScore(tt.query, tt.name)
			if tt.wantBase < 0 {
				assert.Equal(t, -1, score)
				return
			}
			assert.Equal(t, tt.wantBase, score/10000)
		})
	}
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("abc", "abc"))
	assert.Equal(t, 3, levenshteinDistance("", "abc"))
	assert.Equal(t, 1, levenshteinDistance("value", "valu"))
	assert.Equal(t, 2, levenshteinDistance("valeu", "value"))
}
