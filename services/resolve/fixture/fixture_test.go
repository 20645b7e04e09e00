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
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianResolve/services/resolve/index"
	"github.com/AleutianAI/AleutianResolve/services/resolve/javatypes"
)

const scenariosPath = "testdata/scenarios.yaml"

func loadScenarios(t *testing.T) *Document {
	t.Helper()
	doc, err := LoadFile(context.Background(), scenariosPath)
	require.NoError(t, err)
	return doc
}

func TestLoad_Scenarios(t *testing.T) {
	doc := loadScenarios(t)

	assert.Equal(t, "scenarios", doc.Name)
	assert.Len(t, doc.Classes, 4)
	assert.Len(t, doc.Calls, 8)
	assert.Equal(t, "Object...", doc.Classes[2].Methods[2].Params[0])
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"bad yaml", "classes: [unclosed"},
		{"class without name", "classes:\n  - interface: true\n"},
		{"bad visibility", "classes:\n  - name: a.B\n    methods:\n      - name: f\n        visibility: friend\n"},
		{"call without context", "calls:\n  - id: c1\n    method: f\n"},
		{"duplicate class", "classes:\n  - name: a.B\n  - name: a.B\n"},
		{"duplicate call", "calls:\n  - {id: c, method: f, context: a.B}\n  - {id: c, method: g, context: a.B}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(ctx, []byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalidDocument)
		})
	}
}

func TestLoad_TooLarge(t *testing.T) {
	data := make([]byte, MaxDocumentSize+1)
	_, err := Load(context.Background(), data)
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate_Nil(t *testing.T) {
	assert.ErrorIs(t, Validate(nil), ErrInvalidDocument)
}

func TestMethodID(t *testing.T) {
	id := MethodID("com.acme.C", MethodSpec{Name: "f", Params: []string{"int", "Map<String, Integer>", "String..."}})
	assert.Equal(t, "com.acme.C#f(int,Map<String,Integer>,String...)", id)
	assert.Equal(t, "com.acme.C#g()", MethodID("com.acme.C", MethodSpec{Name: "g"}))
}

func TestBuild_Scenarios(t *testing.T) {
	model, err := Build(context.Background(), loadScenarios(t))
	require.NoError(t, err)

	assert.True(t, model.Universe.Frozen())
	stats := model.Index.Stats()
	assert.Equal(t, 13, stats.TotalMethods)
	assert.Len(t, model.Calls, 8)

	derived, ok := model.Universe.Lookup("com.acme.Derived")
	require.True(t, ok)
	base, _ := model.Universe.Lookup("com.acme.Base")
	assert.True(t, model.Universe.IsInheritor(derived.Class, base.Class))

	g, ok := model.Index.GetByID("com.acme.Calls#g(Object...)")
	require.True(t, ok)
	assert.True(t, g.Method.VarArgs)
	assert.Equal(t, "java.lang.Object[]", g.Method.Params[0].Key())

	h, ok := model.Index.GetByID("com.acme.Calls#h(T)")
	require.True(t, ok)
	require.Len(t, h.Method.TypeParams, 1)
	assert.Equal(t, "com.acme.Calls#h(T)", h.Method.TypeParams[0].Owner)

	call, ok := model.CallByID("bounded")
	require.True(t, ok)
	require.NotNil(t, call.Site.Qualifier)
	assert.Equal(t, "com.acme.Box<java.lang.Integer>", call.Site.Qualifier.Key())
	assert.Equal(t, "com.acme.Box#put(N)", call.Expect)

	_, ok = model.CallByID("missing")
	assert.False(t, ok)
}

func TestBuild_TypeParameterBounds(t *testing.T) {
	model, err := Build(context.Background(), loadScenarios(t))
	require.NoError(t, err)

	box, ok := model.Universe.Lookup("com.acme.Box")
	require.True(t, ok)
	bounds := model.Universe.Bounds(box.TypeParams[0])
	require.Len(t, bounds, 1)
	assert.Equal(t, "java.lang.Number", bounds[0].Key())
}

func TestBuild_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		doc  Document
	}{
		{"unknown superclass", Document{Classes: []ClassSpec{{Name: "a.B", Extends: "a.Missing"}}}},
		{"unknown outer", Document{Classes: []ClassSpec{{Name: "a.B$C", Outer: "a.B"}}}},
		{"bad param type", Document{Classes: []ClassSpec{{Name: "a.B", Methods: []MethodSpec{{Name: "f", Params: []string{"Map<"}}}}}}},
		{"varargs not last", Document{Classes: []ClassSpec{{Name: "a.B", Methods: []MethodSpec{{Name: "f", Params: []string{"int...", "int"}}}}}}},
		{"duplicate method", Document{Classes: []ClassSpec{{Name: "a.B", Methods: []MethodSpec{{Name: "f"}, {Name: "f"}}}}}},
		{"unknown call context", Document{Calls: []CallSpec{{ID: "c", Method: "f", Context: "a.Nope"}}}},
		{"array qualifier", Document{
			Classes: []ClassSpec{{Name: "a.B"}},
			Calls:   []CallSpec{{ID: "c", Method: "f", Context: "a.B", Qualifier: "int[]"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(ctx, &tt.doc)
			assert.ErrorIs(t, err, ErrBuild)
		})
	}
}

func TestBuild_IndexOptions(t *testing.T) {
	_, err := Build(context.Background(), loadScenarios(t), index.WithMaxMethods(2))
	assert.ErrorIs(t, err, ErrBuild)
	assert.ErrorIs(t, err, index.ErrMaxMethodsExceeded)
}

func TestBuildCall_ContextTypeVariables(t *testing.T) {
	doc := &Document{
		Classes: []ClassSpec{
			{Name: "a.Holder", TypeParams: []TypeParamSpec{{Name: "E"}}, Methods: []MethodSpec{{Name: "take", Params: []string{"E"}}}},
			{Name: "a.Holder$Inner", Outer: "a.Holder"},
		},
	}
	model, err := Build(context.Background(), doc)
	require.NoError(t, err)

	site, err := BuildCall(model.Universe, &CallSpec{ID: "c", Method: "take", Context: "a.Holder$Inner", Args: []string{"E", UnknownArg}})
	require.NoError(t, err)
	require.Len(t, site.Args, 2)
	tv, ok := site.Args[0].(*javatypes.TypeVar)
	require.True(t, ok)
	assert.Equal(t, "a.Holder", tv.Param.Owner)
	assert.Nil(t, site.Args[1])
}

func TestMarshal_RoundTripsThroughLoad(t *testing.T) {
	doc := loadScenarios(t)
	data, err := Marshal(doc)
	require.NoError(t, err)

	again, err := Load(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, doc, again)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	src, err := os.ReadFile(scenariosPath)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, src, 0o644))

	var mu sync.Mutex
	var models []*Model
	var errs []error
	w, err := NewWatcher(path, func(m *Model, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, err)
			return
		}
		models = append(models, m)
	}, &WatcherOptions{DebounceWindow: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("name: edited\nclasses:\n  - name: a.B\n"), 0o644))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(models) > 0 && models[len(models)-1].Name == "edited"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("classes: [broken"), 0o644))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) > 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_StartRetriesAfterFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "later")
	path := filepath.Join(dir, "fixture.yaml")

	reloaded := make(chan *Model, 4)
	w, err := NewWatcher(path, func(m *Model, err error) {
		if err == nil {
			reloaded <- m
		}
	}, &WatcherOptions{DebounceWindow: 20 * time.Millisecond})
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.Error(t, w.Start(ctx))

	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(path, []byte("name: retried\nclasses:\n  - name: a.B\n"), 0o644))
	select {
	case m := <-reloaded:
		assert.Equal(t, "retried", m.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload after a successful restart")
	}
}

func TestNewWatcher_NilHandler(t *testing.T) {
	_, err := NewWatcher("x.yaml", nil, nil)
	assert.Error(t, err)
}
